package enrich

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/contactloop/leadscout/internal/model"
)

// Rule describes how an anchor element maps to a contact channel. All
// matching is case-insensitive substring matching. An anchor matches when
// every HrefAll token appears in its href, and at least one HrefAny token
// appears in the href or one TextAny token appears in the anchor text.
// Empty token lists are satisfied vacuously, except that a rule with no
// tokens at all never matches.
type Rule struct {
	Field   string   `yaml:"field"`
	HrefAll []string `yaml:"href_all,omitempty"`
	HrefAny []string `yaml:"href_any,omitempty"`
	TextAny []string `yaml:"text_any,omitempty"`
}

// DefaultRules returns the built-in channel detection rules. Order matters:
// for each field the first matching anchor in document order wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Field:   model.FieldContactForm,
			HrefAll: []string{"contact"},
			HrefAny: []string{"form"},
			TextAny: []string{"contact"},
		},
		{
			Field:   model.FieldLinkedIn,
			HrefAny: []string{"linkedin.com"},
		},
		{
			Field:   model.FieldTwitter,
			HrefAny: []string{"twitter.com"},
		},
		{
			Field:   model.FieldTelegram,
			HrefAny: []string{"t.me", "telegram.me"},
		},
		{
			Field:   model.FieldLiveChat,
			HrefAny: []string{"livechat", "live-chat"},
		},
	}
}

// LoadRules reads channel detection rules from a YAML file. An empty path
// returns the defaults.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: reading rules file %s", path)
	}

	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "enrich: parsing rules file %s", path)
	}
	if len(doc.Rules) == 0 {
		return nil, eris.Errorf("enrich: rules file %s contains no rules", path)
	}

	known := make(map[string]bool, len(model.ChannelFields()))
	for _, f := range model.ChannelFields() {
		known[f] = true
	}
	for _, r := range doc.Rules {
		if !known[r.Field] {
			return nil, eris.Errorf("enrich: rule references unknown field %q", r.Field)
		}
		if len(r.HrefAll) == 0 && len(r.HrefAny) == 0 && len(r.TextAny) == 0 {
			return nil, eris.Errorf("enrich: rule for %q has no match tokens", r.Field)
		}
	}
	return doc.Rules, nil
}
