package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

// KeyRotationService rotates the token signing key on a schedule and sweeps
// keys whose verification grace period has lapsed. It only applies to
// persistent key managers; ephemeral deployments rotate on restart anyway.
type KeyRotationService struct {
	Manager  *jwtx.PersistentKeyManager
	Alg      string
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewKeyRotationService creates the worker. An interval of zero or less
// disables scheduled rotation; RotateNow still works.
func NewKeyRotationService(manager *jwtx.PersistentKeyManager, alg string, logger *slog.Logger, interval time.Duration) *KeyRotationService {
	return &KeyRotationService{
		Manager:  manager,
		Alg:      alg,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *KeyRotationService) Start() {
	if s.Interval <= 0 {
		close(s.doneCh)
		return
	}
	go s.run()
	s.Logger.Info("key rotation started", "interval", s.Interval, "alg", s.Alg)
}

func (s *KeyRotationService) Stop() {
	select {
	case <-s.doneCh:
		return
	default:
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *KeyRotationService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RotateNow(context.Background()); err != nil {
				s.Logger.Error("scheduled key rotation failed", "err", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// RotateNow issues a fresh signing key, retires the previous ones and
// sweeps anything past its grace period. Returns the new kid.
func (s *KeyRotationService) RotateNow(ctx context.Context) (string, error) {
	signer, err := s.Manager.Rotate(ctx, s.Alg)
	if err != nil {
		return "", err
	}

	purged, err := s.Manager.Sweep(ctx)
	if err != nil {
		return "", err
	}

	s.Logger.Info("signing key rotated",
		slog.String("kid", signer.Kid()),
		slog.Int64("keys_purged", purged))
	return signer.Kid(), nil
}
