package main

import (
	"github.com/dmitrymomot/notifycore/pkg/email"
	"github.com/dmitrymomot/notifycore/pkg/httpserver"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/notifications/assets"
	"github.com/dmitrymomot/notifycore/pkg/pg"
)

type workerConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	// Optional backends; empty URLs disable the matching resolver or channel.
	RedisURL string `env:"REDIS_URL"`
	MongoURL string `env:"MONGODB_URL"`
	NATSURL  string `env:"NATS_URL"`

	IngestSubject  string `env:"NOTIFICATIONS_INGEST_SUBJECT" envDefault:"notifications.publish" yaml:"ingest_subject"`
	PushSubject    string `env:"NOTIFICATIONS_PUSH_SUBJECT_PREFIX" envDefault:"notifications.user" yaml:"push_subject_prefix"`
	CourseQuery    string `env:"NOTIFICATIONS_COURSE_QUERY" envDefault:"SELECT user_id FROM student_courseenrollment WHERE course_id = $1 AND is_active" yaml:"course_query"`
	CohortKey      string `env:"NOTIFICATIONS_COHORT_KEY" envDefault:"cohort:{cohort_id}:members" yaml:"cohort_key"`
	TeamCollection string `env:"NOTIFICATIONS_TEAM_COLLECTION" envDefault:"team_memberships" yaml:"team_collection"`
	AddressQuery   string `env:"NOTIFICATIONS_ADDRESS_QUERY" yaml:"address_query"`
	EmailEnabled   bool   `env:"NOTIFICATIONS_EMAIL_ENABLED" envDefault:"false" yaml:"email_enabled"`

	// ClientTemplates registers client template renderers as name=asset.
	ClientTemplates map[string]string `env:"NOTIFICATIONS_CLIENT_TEMPLATES" envKeyValSeparator:"=" yaml:"client_templates"`
	TemplateDir     string            `env:"NOTIFICATIONS_TEMPLATE_DIR" envDefault:"./templates" yaml:"template_dir"`

	HTTP          httpserver.Config `yaml:"http"`
	PG            pg.Config
	Notifications notifications.Config `yaml:"notifications"`
	Email         email.Config
	Assets        assets.S3Config
}
