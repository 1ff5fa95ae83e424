package users

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThanksGrantsKarma(t *testing.T) {
	svc, store, notifier, logger := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	assert.Equal(t, 1, store.users["bob"].Karma)
	assert.True(t, svc.thanksCooldown.Has("alice"))
	assert.True(t, svc.thanksReminderCooldown.Has("alice"))

	grants := notifier.messagesContaining("**alice** gave karma to **bob**")
	require.Len(t, grants, 1)
	assert.Zero(t, grants[0].TTL, "the grant summary stays in the channel")
	assert.NotEmpty(t, logger.actionsContaining("gave karma to"))
}

func TestThanksMatchesMultiWordPhrase(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "Thank You so much <@bob>!", member("bob", "bob")))
	assert.Equal(t, 1, store.users["bob"].Karma)
}

func TestThanksIgnoresNonThanksMessage(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "hello <@bob>", member("bob", "bob")))
	assert.Equal(t, 0, store.users["bob"].Karma)
	assert.Empty(t, notifier.sent)
}

func TestThanksCreditsMultipleRecipients(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")
	seedUser(store, "carol", "carol")

	svc.processThanks(msgFrom(member("alice", "alice"), "thx <@bob> <@carol>",
		member("bob", "bob"), member("carol", "carol")))

	assert.Equal(t, 1, store.users["bob"].Karma)
	assert.Equal(t, 1, store.users["carol"].Karma)
	require.Len(t, notifier.messagesContaining("gave karma to **bob, carol**"), 1)
}

func TestThanksDuplicateMentionCreditsOnce(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob> <@bob>",
		member("bob", "bob"), member("bob", "bob")))
	assert.Equal(t, 1, store.users["bob"].Karma)
}

func TestThanksSelfOnly(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@alice>", member("alice", "alice")))

	assert.Equal(t, 0, store.users["alice"].Karma)
	assert.False(t, svc.thanksCooldown.Has("alice"), "a failed grant costs no cooldown")
	require.Len(t, notifier.messagesContaining("can't give karma to yourself"), 1)
}

func TestThanksBotOnly(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@warden>", botMember("warden", "warden")))

	assert.False(t, svc.thanksCooldown.Has("alice"))
	require.Len(t, notifier.messagesContaining("don't need karma"), 1)
	assert.NotContains(t, store.users, "warden")
}

func TestThanksSelfPlusValidRecipient(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@alice> <@bob>",
		member("alice", "alice"), member("bob", "bob")))

	assert.Equal(t, 1, store.users["bob"].Karma)
	assert.Equal(t, 0, store.users["alice"].Karma)
	assert.True(t, svc.thanksCooldown.Has("alice"), "a partial grant still starts the cooldown")
	require.Len(t, notifier.messagesContaining("can't give karma to yourself"), 1)
}

func TestThanksLazilyCreatesRecipientRecord(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	require.Contains(t, store.users, "bob")
	assert.Equal(t, 1, store.users["bob"].Karma)
}

func TestThanksConcurrentSameAuthorCreditsOnce(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.users["bob"].Karma, "the grant gate admits exactly one thanks")
	assert.True(t, svc.thanksCooldown.Has("alice"))
}

func TestThanksKeepsPermanentReminderOptOut(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")
	svc.thanksReminderCooldown.AddPermanent("alice")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	assert.Equal(t, 1, store.users["bob"].Karma)
	assert.True(t, svc.thanksReminderCooldown.IsPermanent("alice"),
		"a successful thanks must not downgrade the opt-out to a timed entry")
}

func TestThanksWhileOnCooldown(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")
	svc.thanksCooldown.Add("alice", 5*time.Minute)

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	assert.Equal(t, 0, store.users["bob"].Karma)
	require.Len(t, notifier.messagesContaining("you must wait"), 1)
}

func TestThanksBeforeMinJoinTime(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	u := seedUser(store, "alice", "alice")
	u.JoinDate = time.Now().Add(-time.Minute)
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	assert.Equal(t, 0, store.users["bob"].Karma)
	require.Len(t, notifier.messagesContaining("at least 10 minutes"), 1)
}

func TestThanksFromUnknownAuthorIsIgnored(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob")))

	assert.Equal(t, 0, store.users["bob"].Karma)
	assert.Empty(t, notifier.sent)
}

func TestThanksOtherGuildIsIgnored(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	m := msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob"))
	m.GuildID = "some-other-guild"
	svc.processThanks(m)

	assert.Equal(t, 0, store.users["bob"].Karma)
	assert.Empty(t, notifier.sent)
}

func TestThanksWithoutMentionRemindsOnce(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks for the help"))
	require.Len(t, notifier.messagesContaining("please @mention them"), 1)
	assert.True(t, svc.editableThanks.Has("msg-1"))

	// Reminder cooldown suppresses a second nudge.
	m2 := msgFrom(member("alice", "alice"), "thanks again")
	m2.ID = "msg-2"
	svc.processThanks(m2)
	require.Len(t, notifier.messagesContaining("please @mention them"), 1)
	assert.True(t, svc.editableThanks.Has("msg-2"), "the message is still edit-retryable")
}

func TestThanksReminderSkippedInGeneralChat(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")

	m := msgFrom(member("alice", "alice"), "thanks all")
	m.ChannelID = generalChannelID
	svc.processThanks(m)

	assert.Empty(t, notifier.messagesContaining("please @mention them"))
	assert.True(t, svc.editableThanks.Has("msg-1"))
}

func TestEditAddingMentionGrantsKarma(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(member("alice", "alice"), "thanks for the fix"))
	require.True(t, svc.editableThanks.Has("msg-1"))

	edited := msgFrom(member("alice", "alice"), "thanks for the fix <@bob>", member("bob", "bob"))
	svc.HandleMessageEdit(edited)

	assert.Equal(t, 1, store.users["bob"].Karma)
	assert.False(t, svc.editableThanks.Has("msg-1"), "a granted thanks is no longer retryable")
	require.Len(t, notifier.messagesContaining("gave karma to **bob**"), 1)
}

func TestEditOfUnregisteredMessageIsIgnored(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "alice", "alice")
	seedUser(store, "bob", "bob")

	edited := msgFrom(member("alice", "alice"), "thanks <@bob>", member("bob", "bob"))
	edited.ID = "never-registered"
	svc.HandleMessageEdit(edited)

	assert.Equal(t, 0, store.users["bob"].Karma)
}

func TestBotAuthoredThanksIsIgnored(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(store, "bob", "bob")

	svc.processThanks(msgFrom(botMember("warden", "warden"), "thanks <@bob>", member("bob", "bob")))
	assert.Equal(t, 0, store.users["bob"].Karma)
}
