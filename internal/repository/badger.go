package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
)

const (
	associationPrefix = "assoc/"
	sequenceKey       = "seq/assoc"
	sequenceBandwidth = 100
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens a BadgerDB database at dir, or an in-memory one when inMemory is set.
func OpenBadger(dir string, inMemory bool, logger *slog.Logger) (*badger.DB, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		logger.Error("failed to open badger database", "dir", dir, "error", err)
		return nil, err
	}
	return db, nil
}

type badgerAssociationRepo struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

// NewBadgerAssociationRepository stores associations under
// assoc/<len><pallet_id><seq>, so a prefix scan returns one identifier's rows
// in insertion order.
func NewBadgerAssociationRepository(db *badger.DB, logger *slog.Logger) (AssociationRepository, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, nil, fmt.Errorf("badger sequence: %w", err)
	}
	r := &badgerAssociationRepo{db: db, seq: seq, logger: logger}
	return r, seq.Release, nil
}

func identifierPrefix(identifier string) []byte {
	p := make([]byte, 0, len(associationPrefix)+2+len(identifier))
	p = append(p, associationPrefix...)
	p = binary.BigEndian.AppendUint16(p, uint16(len(identifier)))
	return append(p, identifier...)
}

func (r *badgerAssociationRepo) ListByIdentifier(ctx context.Context, identifier string) ([]entity.Association, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := identifierPrefix(identifier)
	out := make([]entity.Association, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a entity.Association
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query associations", "pallet_id", identifier, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *badgerAssociationRepo) Create(ctx context.Context, a entity.Association) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := r.seq.Next()
	if err != nil {
		r.logger.Error("failed to allocate association sequence", "pallet_id", a.Identifier, "error", err)
		return err
	}
	val, err := json.Marshal(a)
	if err != nil {
		return err
	}
	key := binary.BigEndian.AppendUint64(identifierPrefix(a.Identifier), n)

	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		r.logger.Error("failed to insert association",
			"pallet_id", a.Identifier, "document_name", a.DocumentName, "page_number", a.PageNumber, "error", err)
		return err
	}
	return nil
}
