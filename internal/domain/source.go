package domain

import (
	"time"
)

type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
)

// Source is a configured messaging-platform integration. The five Additional slots hold
// platform specific credentials (whatsapp: account sid, auth token, from number; telegram: bot token).
type Source struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        Platform  `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	APIKey      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	WebhookURL  string    `gorm:"type:varchar(500)" json:"webhook_url"`
	Additional1 string    `gorm:"type:text" json:"-"`
	Additional2 string    `gorm:"type:text" json:"-"`
	Additional3 string    `gorm:"type:text" json:"-"`
	Additional4 string    `gorm:"type:text" json:"-"`
	Additional5 string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Slot returns credential slot n (1-5), or an empty string for an out of range slot.
func (s *Source) Slot(n int) string {
	switch n {
	case 1:
		return s.Additional1
	case 2:
		return s.Additional2
	case 3:
		return s.Additional3
	case 4:
		return s.Additional4
	case 5:
		return s.Additional5
	}
	return ""
}

// credential names, as returned by Source.Credentials
const (
	CredAccountSID = "account_sid"
	CredAuthToken  = "auth_token"
	CredFromNumber = "from_number"
	CredBotToken   = "bot_token"
	CredWebhookURL = "webhook_url"
)

// Credentials names the credential slots of the source's platform. Unknown platforms have none.
func (s *Source) Credentials() map[string]string {
	switch s.Name {
	case PlatformWhatsApp:
		return map[string]string{
			CredAccountSID: s.Slot(1),
			CredAuthToken:  s.Slot(2),
			CredFromNumber: s.Slot(3),
		}
	case PlatformTelegram:
		return map[string]string{
			CredBotToken:   s.Slot(1),
			CredWebhookURL: s.Slot(2),
		}
	}
	return map[string]string{}
}

// Models lists every persisted entity, in migration order.
func Models() []any {
	return []any{&Company{}, &User{}, &Source{}, &Message{}}
}
