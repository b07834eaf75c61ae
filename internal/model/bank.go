package model

import "strings"

// BankDirectoryEntry is one known bank with its sender whitelist and
// subject blacklist.
type BankDirectoryEntry struct {
	ID                  string
	Slug                string
	Name                string
	WhitelistedSenders  []string
	BlacklistedSubjects []string
}

// IsSubjectBlacklisted reports whether subject contains any of the bank's
// blacklisted substrings, ignoring case. Blank entries never match.
func (b BankDirectoryEntry) IsSubjectBlacklisted(subject string) bool {
	s := strings.ToLower(subject)
	for _, entry := range b.BlacklistedSubjects {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(s, entry) {
			return true
		}
	}
	return false
}

// HasSender reports whether addr is one of the whitelisted senders.
func (b BankDirectoryEntry) HasSender(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, s := range b.WhitelistedSenders {
		if strings.ToLower(strings.TrimSpace(s)) == addr {
			return true
		}
	}
	return false
}

// CardDirectoryEntry is a registered payment card. Last4, CardType and
// CardKind are nullable in the directory.
type CardDirectoryEntry struct {
	ID       string
	BankID   string
	Last4    *string
	CardType *string
	CardKind *string
}
