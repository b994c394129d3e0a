package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

// keyCipher bridges cryptox's master-key encryption to the jwtx.Cipher
// interface.
type keyCipher struct{}

func (keyCipher) Encrypt(plaintext []byte) ([]byte, error) {
	return cryptox.EncryptPrivateKey(plaintext)
}

func (keyCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return cryptox.DecryptPrivateKey(ciphertext)
}

// InitSigningKeys builds the key manager per the configured storage mode.
//
//   - "ephemeral": a fresh key is generated on startup and lives only in
//     memory. Tokens die with the process.
//   - "persistent": keys are sealed with the master key and stored in the
//     database; tokens survive restarts and rotation keeps a grace window.
//
// The second return is non-nil only in persistent mode.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, *jwtx.PersistentKeyManager, error) {
	switch cfg.KeyStorageMode {
	case "persistent":
		if cfg.MasterKeyPath != "" {
			cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		}

		manager := jwtx.NewPersistentKeyManager(
			store.NewKeyStoreAdapter(db.SigningKeys()),
			keyCipher{},
			cfg.KeyGracePeriod,
		)
		if err := manager.Load(ctx); err != nil {
			return nil, nil, fmt.Errorf("load signing keys: %w", err)
		}

		if len(manager.ActiveKids()) == 0 {
			signer, err := manager.GenerateKey(ctx, cfg.Algorithm)
			if err != nil {
				return nil, nil, fmt.Errorf("generate signing key: %w", err)
			}
			logger.Info("generated initial signing key",
				"kid", signer.Kid(), "alg", cfg.Algorithm)
		} else {
			logger.Info("restored signing keys",
				"active", manager.ActiveKids(), "alg", cfg.Algorithm)
		}
		return manager.KeyManager, manager, nil

	default:
		manager := jwtx.NewKeyManager()
		signer, err := jwtx.GenerateSigner(cfg.Algorithm)
		if err != nil {
			return nil, nil, fmt.Errorf("generate ephemeral signing key: %w", err)
		}
		manager.AddSigner(signer)

		logger.Info("generated ephemeral signing key",
			"kid", signer.Kid(), "alg", cfg.Algorithm)
		logger.Warn("ephemeral key mode: existing tokens are invalid after restart")
		return manager, nil, nil
	}
}
