package version

const (
	AppName     = "server-warden"
	AppVersion  = "0.1.0"
	Description = "Community moderation and engagement bot: XP, karma, code etiquette, mute enforcement"
)
