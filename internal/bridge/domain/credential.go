package domain

// CredentialEntry is a decrypted credential released to a browser client
// after an approved query.
type CredentialEntry struct {
	EntryID  int64  `json:"entry_id"`
	Label    string `json:"label"`
	Website  string `json:"website"`
	Username string `json:"username"`
	Password string `json:"password"`
}
