package modes

import (
	"fmt"
	"strings"

	"github.com/yourusername/modewatch/internal/config"
)

// LoadDefaults populates the registry from configured tables, used until the
// server advertises its own through RPL_ISUPPORT
func (r *Registry) LoadDefaults(cfg config.ModesConfig) error {
	if err := r.applyChanModes(cfg.ChanModes); err != nil {
		return err
	}
	if err := r.applyPrefix(cfg.Prefix); err != nil {
		return err
	}
	for i := 0; i < len(cfg.UserModes); i++ {
		if _, err := r.Define(User, Boolean, cfg.UserModes[i]); err != nil {
			return err
		}
	}
	if cfg.ChanTypes != "" {
		r.chanTypes = cfg.ChanTypes
	}
	if cfg.CaseMapping != "" {
		r.caseMapping = cfg.CaseMapping
	}
	return nil
}

// ApplyISupport reads the KEY=VALUE tokens of an RPL_ISUPPORT (005) line.
// Unrecognised tokens are ignored. Errors from individual tokens are collected
// and returned after all tokens were applied.
func (r *Registry) ApplyISupport(tokens []string) error {
	var failed []string
	var prefix *string
	for _, token := range tokens {
		key, value, _ := strings.Cut(token, "=")
		var err error
		switch strings.ToUpper(key) {
		case "CHANMODES":
			err = r.applyChanModes(value)
		case "PREFIX":
			// applied last so it wins over CHANMODES on the same line
			v := value
			prefix = &v
		case "CHANTYPES":
			r.chanTypes = value
		case "CASEMAPPING":
			r.caseMapping = strings.ToLower(value)
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if prefix != nil {
		if err := r.applyPrefix(*prefix); err != nil {
			failed = append(failed, fmt.Sprintf("PREFIX: %v", err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("isupport: %s", strings.Join(failed, "; "))
	}
	return nil
}

// applyChanModes handles CHANMODES=A,B,C,D. Groups beyond the fourth are
// ignored, as servers may add more in the future. Characters already active
// as prefix modes are skipped; any other character that is already active as
// a more specific kind keeps that kind.
func (r *Registry) applyChanModes(value string) error {
	groups := strings.Split(value, ",")
	for i, group := range groups {
		for j := 0; j < len(group); j++ {
			code := group[j]
			if def, ok := r.Lookup(Channel, code); ok && def.Kind == Prefix {
				continue
			}
			var err error
			switch i {
			case 0:
				_, err = r.Define(Channel, List, code)
			case 1:
				_, err = r.DefineParameter(code, true)
			case 2:
				_, err = r.DefineParameter(code, false)
			case 3:
				_, err = r.Define(Channel, Boolean, code)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// applyPrefix handles PREFIX=(modes)symbols. Prefix modes missing from the
// newest PREFIX stop resolving as prefix modes; an empty value drops them all.
func (r *Registry) applyPrefix(value string) error {
	var codes, symbols string
	if value != "" {
		end := strings.IndexByte(value, ')')
		if !strings.HasPrefix(value, "(") || end < 0 {
			return fmt.Errorf("malformed PREFIX %q", value)
		}
		codes, symbols = value[1:end], value[end+1:]
		if len(codes) != len(symbols) {
			return fmt.Errorf("PREFIX %q has %d modes but %d symbols", value, len(codes), len(symbols))
		}
	}

	order := make([]byte, 0, len(codes))
	for i := 0; i < len(codes); i++ {
		if _, err := r.DefinePrefix(codes[i], symbols[i]); err != nil {
			return err
		}
		order = append(order, codes[i])
	}

	for _, def := range r.Definitions(Channel, Prefix) {
		if strings.IndexByte(codes, def.Code) < 0 && r.isActive(def) {
			r.demote(Channel, def.Code)
		}
	}
	r.prefixOrder = order
	return nil
}

// Fold maps a nick or channel name to its canonical lower-case form under the
// casemapping in effect
func (r *Registry) Fold(name string) string {
	return FoldCase(r.caseMapping, name)
}

// FoldCase lower-cases name according to an ISUPPORT CASEMAPPING value
func FoldCase(caseMapping, name string) string {
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case caseMapping == "ascii":
		case c == '[' || c == ']' || c == '\\':
			// []\ fold to {}| under both rfc1459 variants
			b[i] = c + ('{' - '[')
		case c == '^' && caseMapping != "strict-rfc1459":
			b[i] = '~'
		}
	}
	return string(b)
}
