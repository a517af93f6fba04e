package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rahmatrdn/go-ora-telemetry/entity"
	"github.com/rahmatrdn/go-ora-telemetry/internal/crypt"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/sqlite"
)

// ConnectionUsecase is the connection registry: it stores registration data
// (password encrypted at rest), captures the edition banner once at
// registration, and hands usable connections to the collector and the
// history reader.
type ConnectionUsecase struct {
	repo   sqlite.ConnectionRepository
	client oracle.Client
	cipher *crypt.Cipher
	logger *zap.Logger
}

func NewConnectionUsecase(repo sqlite.ConnectionRepository, client oracle.Client, cipher *crypt.Cipher, logger *zap.Logger) *ConnectionUsecase {
	return &ConnectionUsecase{repo: repo, client: client, cipher: cipher, logger: logger}
}

// CreateConnection validates the credentials against the instance, captures
// the edition banner and stores the row with the password encrypted.
func (u *ConnectionUsecase) CreateConnection(ctx context.Context, conn *entity.OracleConnection) error {
	conn.CreatedAt = time.Now()
	conn.UpdatedAt = time.Now()

	if err := u.client.Ping(ctx, conn); err != nil {
		return err
	}

	// The banner drives AWR gating later; a failed fetch leaves the
	// capability Unknown rather than blocking registration.
	banner, err := u.client.EditionBanner(ctx, conn)
	if err == nil {
		conn.EditionBanner = banner
	} else {
		u.logger.Warn("edition banner fetch failed", zap.String("host", conn.Host), zap.Error(err))
	}

	encrypted, err := u.cipher.Encrypt(conn.Password)
	if err != nil {
		return err
	}
	conn.Password = encrypted

	return u.repo.Create(ctx, conn)
}

// UpdateConnection re-validates and re-encrypts. An empty password keeps the
// stored one.
func (u *ConnectionUsecase) UpdateConnection(ctx context.Context, id int64, conn *entity.OracleConnection) error {
	existing, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrConnectionNotFound
	}

	conn.ID = id
	conn.CreatedAt = existing.CreatedAt
	conn.UpdatedAt = time.Now()

	if conn.Password == "" {
		conn.Password = existing.Password
	} else {
		if err := u.client.Ping(ctx, conn); err != nil {
			return err
		}
		if banner, err := u.client.EditionBanner(ctx, conn); err == nil {
			conn.EditionBanner = banner
		}
		encrypted, err := u.cipher.Encrypt(conn.Password)
		if err != nil {
			return err
		}
		conn.Password = encrypted
	}

	return u.repo.Update(ctx, conn)
}

func (u *ConnectionUsecase) GetAllConnections(ctx context.Context) ([]*entity.OracleConnection, error) {
	return u.repo.FindAll(ctx)
}

func (u *ConnectionUsecase) DeleteConnection(ctx context.Context, id int64) error {
	return u.repo.Delete(ctx, id)
}

// ResolveByID returns a copy of the connection with the password decrypted,
// ready to hand to the engine client. Nil when the id is unknown.
func (u *ConnectionUsecase) ResolveByID(ctx context.Context, id int64) (*entity.OracleConnection, error) {
	conn, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, nil
	}

	resolved := *conn
	plain, err := u.cipher.Decrypt(conn.Password)
	if err != nil {
		return nil, err
	}
	resolved.Password = plain
	return &resolved, nil
}
