package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tailLen = 9

var ErrEmptyContacts = errors.New("media: contacts file has no entries")

// ContactsFile is the YAML document accepted by ImportContacts:
//
//	contacts:
//	  - name: Alice
//	    phone: "+1 (555) 010-0000"
type ContactsFile struct {
	Contacts []ContactEntry `yaml:"contacts"`
}

type ContactEntry struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// NormalizeNumber strips spaces, dashes, dots and parentheses.
func NormalizeNumber(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func tailDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) < tailLen {
		return ""
	}
	return d[len(d)-tailLen:]
}

// ImportContacts upserts every entry of a YAML contacts file, keyed by the
// normalized number. Entries without a name or number are skipped.
func ImportContacts(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	var f ContactsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, ErrEmptyContacts
		}
		return 0, fmt.Errorf("decode contacts: %w", err)
	}

	rows := make([]Contact, 0, len(f.Contacts))
	seen := map[string]int{}
	for _, e := range f.Contacts {
		name := strings.TrimSpace(e.Name)
		num := NormalizeNumber(e.Phone)
		if name == "" || num == "" {
			continue
		}
		// last entry wins for duplicate numbers
		if i, ok := seen[num]; ok {
			rows[i].DisplayName = name
			continue
		}
		seen[num] = len(rows)
		rows = append(rows, Contact{DisplayName: name, PhoneNumber: num, Tail: tailDigits(num)})
	}
	if len(rows) == 0 {
		return 0, ErrEmptyContacts
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "tail"}),
		}).
		Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert contacts: %w", err)
	}
	return len(rows), nil
}
