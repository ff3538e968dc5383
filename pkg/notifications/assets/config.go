package assets

// S3Config holds the bucket the notification templates are served from.
type S3Config struct {
	Bucket         string `env:"NOTIFICATIONS_ASSETS_S3_BUCKET"`
	Region         string `env:"NOTIFICATIONS_ASSETS_S3_REGION" envDefault:"us-east-1"`
	Endpoint       string `env:"NOTIFICATIONS_ASSETS_S3_ENDPOINT"` // Endpoint targets S3 compatible services such as MinIO.
	AccessKeyID    string `env:"NOTIFICATIONS_ASSETS_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"NOTIFICATIONS_ASSETS_S3_SECRET_KEY"`
	ForcePathStyle bool   `env:"NOTIFICATIONS_ASSETS_S3_FORCE_PATH_STYLE" envDefault:"false"`
	Prefix         string `env:"NOTIFICATIONS_ASSETS_S3_PREFIX"` // Prefix is prepended to every asset name.
}
