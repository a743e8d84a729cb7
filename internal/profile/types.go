package profile

import (
	"strconv"
	"strings"
)

// Reserved document keys. uid and email always come from the verified claim.
const (
	KeyUID      = "uid"
	KeyEmail    = "email"
	KeyID       = "id"
	KeyName     = "name"
	KeyAge      = "age"
	KeyGender   = "gender"
	KeyState    = "state"
	KeyLanguage = "language"
	KeyReligion = "religion"
)

// Profile is the typed view of a stored user document. Optional fields are
// nil until the user has submitted them; everything else lands in Extra.
type Profile struct {
	UID      string
	Email    string
	Name     *string
	Age      *string // numeric ages are kept in their decimal text form
	Gender   *string
	State    *string
	Language *string
	Religion *string
	Extra    map[string]any
}

// FromFields builds a Profile from a schema-less field map. Blank strings
// count as absent, and values of unsupported types are left in Extra.
func FromFields(fields map[string]any) Profile {
	p := Profile{Extra: make(map[string]any)}
	for k, v := range fields {
		switch k {
		case KeyUID:
			p.UID, _ = v.(string)
		case KeyEmail:
			p.Email, _ = v.(string)
		case KeyID:
		case KeyName:
			p.Name = textValue(v, &p, k)
		case KeyAge:
			p.Age = textValue(v, &p, k)
		case KeyGender:
			p.Gender = textValue(v, &p, k)
		case KeyState:
			p.State = textValue(v, &p, k)
		case KeyLanguage:
			p.Language = textValue(v, &p, k)
		case KeyReligion:
			p.Religion = textValue(v, &p, k)
		default:
			p.Extra[k] = v
		}
	}
	return p
}

func textValue(v any, p *Profile, key string) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case nil:
		return nil
	default:
		p.Extra[key] = v
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// Value returns the named typed field and whether it is set.
func (p Profile) Value(key string) (string, bool) {
	var f *string
	switch key {
	case KeyName:
		f = p.Name
	case KeyAge:
		f = p.Age
	case KeyGender:
		f = p.Gender
	case KeyState:
		f = p.State
	case KeyLanguage:
		f = p.Language
	case KeyReligion:
		f = p.Religion
	}
	if f == nil {
		return "", false
	}
	return *f, true
}
