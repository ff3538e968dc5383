package notifications

import "time"

// Config is the environment and YAML surface of the core.
//
// Environment maps use "key=value" pairs separated by commas:
//
//	NOTIFICATIONS_TYPE_CHANNEL_MAP="open-edx.lms.*=durable,open-edx.studio.alert=email"
//	NOTIFICATIONS_LINK_TEMPLATES="open-edx.lms.discussions.reply-to-thread=/t/{thread_id}"
//
// Per-user overrides are only read from YAML.
type Config struct {
	BulkChunkSize        int                   `env:"NOTIFICATIONS_BULK_CHUNK_SIZE" envDefault:"100" yaml:"bulk_chunk_size" validate:"min=1"`
	DefaultChannel       string                `env:"NOTIFICATIONS_DEFAULT_CHANNEL" envDefault:"durable" yaml:"default_channel" validate:"required"`
	TypeChannelMap       map[string]string     `env:"NOTIFICATIONS_TYPE_CHANNEL_MAP" envKeyValSeparator:"=" yaml:"type_channel_map"`
	UserChannelOverrides []UserChannelOverride `yaml:"user_channel_overrides" validate:"dive"`
	LinkTemplates        map[string]string     `env:"NOTIFICATIONS_LINK_TEMPLATES" envKeyValSeparator:"=" yaml:"link_templates"`
	MaxListSize          int                   `env:"NOTIFICATIONS_MAX_LIST_SIZE" envDefault:"100" yaml:"max_list_size" validate:"min=1"`
	Purge                PurgeConfig           `yaml:"purge"`
	Timers               TimerConfig           `yaml:"timers"`
}

// UserChannelOverride routes one type to a channel for one user.
type UserChannelOverride struct {
	Type    string `yaml:"type" validate:"required"`
	UserID  int64  `yaml:"user_id" validate:"required"`
	Channel string `yaml:"channel" validate:"required"`
}

// PurgeConfig drives the periodic Purger. A zero duration disables that cut-off.
type PurgeConfig struct {
	Schedule        string        `env:"NOTIFICATIONS_PURGE_SCHEDULE" envDefault:"@daily" yaml:"schedule" validate:"required"`
	ReadOlderThan   time.Duration `env:"NOTIFICATIONS_PURGE_READ_OLDER_THAN" envDefault:"720h" yaml:"read_older_than" validate:"min=0"`
	UnreadOlderThan time.Duration `env:"NOTIFICATIONS_PURGE_UNREAD_OLDER_THAN" envDefault:"2160h" yaml:"unread_older_than" validate:"min=0"`
	ArchiveEnabled  bool          `env:"NOTIFICATIONS_ARCHIVE_ENABLED" envDefault:"false" yaml:"archive_enabled"`
}

// Options returns the purge cut-offs as PurgeOptions.
func (c PurgeConfig) Options() PurgeOptions {
	return PurgeOptions{
		ReadOlderThan:   c.ReadOlderThan,
		UnreadOlderThan: c.UnreadOlderThan,
	}
}

// TimerConfig drives the TimerRunner poll.
type TimerConfig struct {
	Schedule string `env:"NOTIFICATIONS_TIMER_SCHEDULE" envDefault:"@every 1m" yaml:"schedule" validate:"required"`
}
