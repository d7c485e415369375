package auth

// Policy decides whether a principal may push recordings to remote storage.
type Policy func(p Principal) bool

// AllowEmails permits principals whose email exactly matches one of the given addresses.
func AllowEmails(emails ...string) Policy {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return func(p Principal) bool {
		if p.Email == "" {
			return false
		}
		_, ok := allowed[p.Email]
		return ok
	}
}

// DenyAll rejects everyone. Useful as a safe zero value.
func DenyAll() Policy {
	return func(Principal) bool { return false }
}
