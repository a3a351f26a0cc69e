package classify

// Built-in lists cover the common cases when no data directory is
// present. Operators with real lists mount them via DATA_DIR.

var builtinFree = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "ymail.com", "aol.com",
	"outlook.com", "hotmail.com", "live.com", "msn.com", "icloud.com",
	"me.com", "mail.com", "gmx.com", "gmx.net", "proton.me",
	"protonmail.com", "zoho.com", "yandex.com", "mail.ru",
}

var builtinDisposable = []string{
	"temp-mail.org", "10minutemail.com", "guerrillamail.com",
	"mailinator.com", "yopmail.com", "throwawaymail.com", "tempmail.net",
	"sharklasers.com", "dispostable.com", "trashmail.com",
}

var builtinRole = []string{
	"admin", "support", "info", "sales", "contact", "help", "office",
	"marketing", "jobs", "billing", "abuse", "postmaster", "noreply",
	"no-reply", "webmaster", "hostmaster", "hr",
}

// BuiltinSets returns Sets backed by the compiled-in lists.
func BuiltinSets() *Sets {
	return NewSets(builtinFree, builtinDisposable, builtinRole)
}
