package directory

type User struct {
	UID         string
	DN          string
	DisplayName string
	Mail        string
	// Accounts lists the practice accounts the user may open. nil means the
	// directory does not scope users to accounts.
	Accounts []string
}
