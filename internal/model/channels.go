package model

// Channel field keys, in the order the enrichment passes evaluate them.
const (
	FieldContactForm = "contact_form_url"
	FieldLinkedIn    = "linkedin_profile"
	FieldTwitter     = "twitter_handle"
	FieldTelegram    = "telegram_handle"
	FieldLiveChat    = "live_chat_url"
)

// ChannelFields returns all channel field keys in evaluation order.
func ChannelFields() []string {
	return []string{FieldContactForm, FieldLinkedIn, FieldTwitter, FieldTelegram, FieldLiveChat}
}

// ChannelSet holds the contact channels discovered for a business. A nil
// field means unknown; an empty string is a known-but-empty value and is
// never used as a sentinel.
type ChannelSet struct {
	ContactFormURL  *string `json:"contact_form_url,omitempty"`
	LinkedInProfile *string `json:"linkedin_profile,omitempty"`
	TwitterHandle   *string `json:"twitter_handle,omitempty"`
	TelegramHandle  *string `json:"telegram_handle,omitempty"`
	LiveChatURL     *string `json:"live_chat_url,omitempty"`
}

// Get returns the value for a channel field key, or nil for unrecognized keys.
func (c *ChannelSet) Get(field string) *string {
	switch field {
	case FieldContactForm:
		return c.ContactFormURL
	case FieldLinkedIn:
		return c.LinkedInProfile
	case FieldTwitter:
		return c.TwitterHandle
	case FieldTelegram:
		return c.TelegramHandle
	case FieldLiveChat:
		return c.LiveChatURL
	}
	return nil
}

// Fill sets a channel field only if it is currently unknown. Returns true
// when the value was taken. A known value is never replaced.
func (c *ChannelSet) Fill(field, value string) bool {
	var slot **string
	switch field {
	case FieldContactForm:
		slot = &c.ContactFormURL
	case FieldLinkedIn:
		slot = &c.LinkedInProfile
	case FieldTwitter:
		slot = &c.TwitterHandle
	case FieldTelegram:
		slot = &c.TelegramHandle
	case FieldLiveChat:
		slot = &c.LiveChatURL
	default:
		return false
	}
	if *slot != nil {
		return false
	}
	*slot = &value
	return true
}

// Missing returns the field keys still unknown after an enrichment pass.
func (c *ChannelSet) Missing() []string {
	var missing []string
	for _, f := range ChannelFields() {
		if c.Get(f) == nil {
			missing = append(missing, f)
		}
	}
	return missing
}

// Known reports how many channel fields carry a value.
func (c *ChannelSet) Known() int {
	n := 0
	for _, f := range ChannelFields() {
		if c.Get(f) != nil {
			n++
		}
	}
	return n
}
