package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinWelcomeFlow(t *testing.T) {
	svc, store, notifier, logger := newTestService(t)

	svc.HandleJoin(testGuildID, member("newbie", "newbie"))

	require.Contains(t, store.users, "newbie")
	require.Equal(t, []string{welcomeChannelID}, notifier.welcomes)

	dms := notifier.dms["newbie"]
	require.Len(t, dms, 2, "an introduction followed by the rules")
	assert.Contains(t, dms[0], "welcome to the community")
	assert.Equal(t, "Be kind.", dms[1])

	assert.NotEmpty(t, logger.actionsContaining("User joined"))
	assert.Empty(t, notifier.roles)
}

func TestJoinWithoutRulesSkipsSecondDM(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	cfg := testConfig()
	cfg.Rules = nil
	svc, err := NewService(cfg, store, notifier, &recordLogger{})
	require.NoError(t, err)

	svc.HandleJoin(testGuildID, member("newbie", "newbie"))
	assert.Len(t, notifier.dms["newbie"], 1)
}

func TestJoinOtherGuildIsIgnored(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)

	svc.HandleJoin("some-other-guild", member("newbie", "newbie"))
	assert.Empty(t, store.users)
	assert.Empty(t, notifier.welcomes)
}

func TestJoinKeepsExistingRecord(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	u := seedUser(store, "regular", "regular")
	u.Karma = 12

	svc.HandleJoin(testGuildID, member("regular", "regular"))
	assert.Equal(t, 12, store.users["regular"].Karma, "rejoining must not wipe progress")
}

func TestJoinMuteEvasion(t *testing.T) {
	svc, _, notifier, logger := newTestService(t)
	svc.mutedUsers.Add("dodger", time.Hour)

	svc.HandleJoin(testGuildID, member("dodger", "dodger"))

	require.Equal(t, []string{testGuildID + "/dodger/" + mutedRoleID}, notifier.roles)

	callouts := notifier.messagesContaining("Mute time increased by 72 hours")
	require.Len(t, callouts, 1)
	assert.Equal(t, generalChannelID, callouts[0].ChannelID)

	remaining := svc.mutedUsers.Remaining("dodger")
	assert.Greater(t, remaining, 71*time.Hour, "the mute clock restarts at the full penalty")

	assert.Empty(t, notifier.welcomes, "no welcome for an evader")
	assert.Empty(t, notifier.dms)
	assert.NotEmpty(t, logger.actionsContaining("muted user rejoined"))
}

func TestMemberUpdateNicknameChange(t *testing.T) {
	svc, _, _, logger := newTestService(t)

	old := member("alice", "alice")
	current := member("alice", "alice")
	current.Nickname = "al"
	svc.HandleMemberUpdate(testGuildID, old, current)

	require.Len(t, logger.actionsContaining("changed their nickname"), 1)
}

func TestMemberUpdateAvatarChange(t *testing.T) {
	svc, _, _, logger := newTestService(t)

	old := member("alice", "alice")
	current := member("alice", "alice")
	current.AvatarURL = "https://cdn.example/avatars/new.png"
	svc.HandleMemberUpdate(testGuildID, old, current)

	require.Len(t, logger.actionsContaining("updated their avatar"), 1)
}

func TestMemberUpdateNoChange(t *testing.T) {
	svc, _, _, logger := newTestService(t)

	m := member("alice", "alice")
	svc.HandleMemberUpdate(testGuildID, m, m)
	assert.Empty(t, logger.actions)
}

func TestLeaveLogsStayDuration(t *testing.T) {
	svc, store, _, logger := newTestService(t)
	u := seedUser(store, "alice", "alice")
	u.JoinDate = time.Now().Add(-77 * time.Hour)

	svc.HandleLeave(testGuildID, member("alice", "alice"))
	require.Len(t, logger.actionsContaining("after 3 days 5 hours"), 1)
}

func TestLeaveRecentMemberLogsHours(t *testing.T) {
	svc, store, _, logger := newTestService(t)
	u := seedUser(store, "alice", "alice")
	u.JoinDate = time.Now().Add(-26 * time.Hour)

	svc.HandleLeave(testGuildID, member("alice", "alice"))
	require.Len(t, logger.actionsContaining("after 2 hours"), 1)
}

func TestLeaveWithoutRecord(t *testing.T) {
	svc, _, _, logger := newTestService(t)

	svc.HandleLeave(testGuildID, member("ghost", "ghost"))
	require.Len(t, logger.actionsContaining("after 0 hours"), 1)
}
