package shared

type ServerConfig struct {
	Sqlite    SqliteConfig    `mapstructure:"sqlite" validate:"required"`
	CareFever CareFeverConfig `mapstructure:"carefever" validate:"required"`
	Google    GoogleConfig    `mapstructure:"google"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type CareFeverConfig struct {
	Listener         ListenerConfig         `mapstructure:"listener" validate:"required"`
	Webhook          WebhookConfig          `mapstructure:"webhook" validate:"required"`
	IdentityProvider IdentityProviderConfig `mapstructure:"identityProvider"`
	Frontend         FrontendConfig         `mapstructure:"frontend"`
	Cron             CronConfig             `mapstructure:"cron" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type WebhookConfig struct {
	// Shared secret for the identity-provider webhook, in the
	// provider's 'whsec_' format.
	SigningSecret string `mapstructure:"signingSecret" validate:"required"`
}

type IdentityProviderConfig struct {
	// When set, user-scoped routes require a provider-issued session
	// token verified against this JWKS endpoint.
	JwksURL string `mapstructure:"jwksUrl"`
}

type FrontendConfig struct {
	// Origin allowed by CORS, e.g. the deployed client's base URL.
	BaseURL string `mapstructure:"baseUrl"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}
