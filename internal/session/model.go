// File: internal/session/model.go
package session

import (
	"strings"
	"time"

	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

// Identity is the authenticated principal issued by the auth provider.
// It is never mutated by this package; only the derived Profile is.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Preferences are the job-search preferences stored on the Profile.
type Preferences struct {
	TargetRole   string
	TargetSalary string
	Locations    []string
}

// Links holds the Profile's external profile URLs.
type Links struct {
	LinkedIn  string
	GitHub    string
	Portfolio string
}

// Profile is the per-Identity extended attributes document, distinct
// from the Identity itself. Exactly one exists per Identity, created
// lazily with defaults the first time an Identity authenticates without
// one.
type Profile struct {
	Email       string
	FirstName   string
	LastName    string
	Role        string
	Bio         string
	CreatedAt   time.Time
	Preferences Preferences
	Skills      []string
	Links       Links
}

// ProfileUpdate is a partial Profile mutation. Nil fields are left
// untouched; the write uses merge semantics, never replace.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Role        *string
	Bio         *string
	Preferences *Preferences
	Skills      []string
	Links       *Links
}

// DefaultProfile synthesizes the starter profile for a first-time
// sign-in, splitting the provider display name into first/last at the
// first whitespace.
func DefaultProfile(id Identity) Profile {
	firstName := "User"
	lastName := ""
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		parts := strings.SplitN(name, " ", 2)
		firstName = parts[0]
		if len(parts) == 2 {
			lastName = parts[1]
		}
	}
	return Profile{
		Email:     id.Email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      "Job Seeker",
		Bio:       "Ready to land my dream job!",
		CreatedAt: time.Now(),
		Preferences: Preferences{
			TargetRole:   "Software Engineer",
			TargetSalary: "10-20 LPA",
			Locations:    []string{"Remote"},
		},
		Skills: []string{"React", "JavaScript"},
	}
}

// --- document adapters ---
// Field names match the original web client's profile documents so both
// consumers can share one store.

func profileFields(p Profile) store.Fields {
	return store.Fields{
		"email":     p.Email,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"role":      p.Role,
		"bio":       p.Bio,
		"createdAt": p.CreatedAt,
		"preferences": store.Fields{
			"targetRole":   p.Preferences.TargetRole,
			"targetSalary": p.Preferences.TargetSalary,
			"locations":    append([]string(nil), p.Preferences.Locations...),
		},
		"skills": append([]string(nil), p.Skills...),
		"links": store.Fields{
			"linkedin":  p.Links.LinkedIn,
			"github":    p.Links.GitHub,
			"portfolio": p.Links.Portfolio,
		},
	}
}

func profileFromFields(f store.Fields) Profile {
	p := Profile{
		Email:     fieldString(f, "email"),
		FirstName: fieldString(f, "firstName"),
		LastName:  fieldString(f, "lastName"),
		Role:      fieldString(f, "role"),
		Bio:       fieldString(f, "bio"),
		CreatedAt: fieldTime(f, "createdAt"),
		Skills:    fieldStrings(f, "skills"),
	}
	if prefs, ok := nestedFields(f, "preferences"); ok {
		p.Preferences = Preferences{
			TargetRole:   fieldString(prefs, "targetRole"),
			TargetSalary: fieldString(prefs, "targetSalary"),
			Locations:    fieldStrings(prefs, "locations"),
		}
	}
	if links, ok := nestedFields(f, "links"); ok {
		p.Links = Links{
			LinkedIn:  fieldString(links, "linkedin"),
			GitHub:    fieldString(links, "github"),
			Portfolio: fieldString(links, "portfolio"),
		}
	}
	return p
}

func (u ProfileUpdate) fields() store.Fields {
	out := store.Fields{}
	if u.FirstName != nil {
		out["firstName"] = *u.FirstName
	}
	if u.LastName != nil {
		out["lastName"] = *u.LastName
	}
	if u.Role != nil {
		out["role"] = *u.Role
	}
	if u.Bio != nil {
		out["bio"] = *u.Bio
	}
	if u.Preferences != nil {
		out["preferences"] = store.Fields{
			"targetRole":   u.Preferences.TargetRole,
			"targetSalary": u.Preferences.TargetSalary,
			"locations":    append([]string(nil), u.Preferences.Locations...),
		}
	}
	if u.Skills != nil {
		out["skills"] = append([]string(nil), u.Skills...)
	}
	if u.Links != nil {
		out["links"] = store.Fields{
			"linkedin":  u.Links.LinkedIn,
			"github":    u.Links.GitHub,
			"portfolio": u.Links.Portfolio,
		}
	}
	return out
}

func fieldString(f store.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func fieldTime(f store.Fields, key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}

func fieldStrings(f store.Fields, key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func nestedFields(f store.Fields, key string) (store.Fields, bool) {
	switch v := f[key].(type) {
	case store.Fields:
		return v, true
	case map[string]any:
		return store.Fields(v), true
	default:
		return nil, false
	}
}
