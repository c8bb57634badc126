package domain

import "time"

// CredentialProviderOpenAI is the fixed provider id for the singleton
// credential record.
const CredentialProviderOpenAI = "openai"

// Credential holds the encrypted API secret for the remote provider. The
// ciphertext embeds its nonce; the decrypting key lives in the process-wide
// keystore, so record and key must both exist to recover the secret.
type Credential struct {
	Provider   string
	Ciphertext []byte
	CreatedAt  time.Time
}
