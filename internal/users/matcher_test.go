package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThanksMatcherWholeWords(t *testing.T) {
	re, err := newThanksMatcher([]string{"thanks", "thank you", "ty"})
	require.NoError(t, err)

	assert.True(t, re.MatchString("thanks a lot"))
	assert.True(t, re.MatchString("THANKS!"))
	assert.True(t, re.MatchString("well, thank you kindly"))
	assert.True(t, re.MatchString("ty"))

	assert.False(t, re.MatchString("thanksgiving dinner"), "no match inside a longer word")
	assert.False(t, re.MatchString("tyrone said hi"))
	assert.False(t, re.MatchString("nothing to see"))
}

func TestThanksMatcherEscapesMetacharacters(t *testing.T) {
	re, err := newThanksMatcher([]string{"thank.you"})
	require.NoError(t, err)

	assert.True(t, re.MatchString("a big thank.you to bob"))
	assert.False(t, re.MatchString("a big thank-you to bob"), "the dot must not act as a wildcard")
}

func TestThanksMatcherRejectsEmptyVocabulary(t *testing.T) {
	_, err := newThanksMatcher(nil)
	require.Error(t, err)
}

func TestThanksMatcherRejectsEmptyEntry(t *testing.T) {
	_, err := newThanksMatcher([]string{"thanks", "  "})
	require.Error(t, err)
}

func TestThanksMatcherRejectsDuplicates(t *testing.T) {
	_, err := newThanksMatcher([]string{"thanks", "Thanks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
