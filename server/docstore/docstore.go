package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Tanishq-j/CareFever/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "carefever.db"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a single record in a collection. Data holds the document
// body as loosely-typed JSON, the way the upstream store kept it.
type Document struct {
	Collection string                 `json:"-"`
	ID         string                 `json:"id"`
	Data       map[string]interface{} `json:"data"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// documentRow is the gorm model backing Document. Collection paths nest
// the same way the original store did e.g. "users/<uid>/past-records".
type documentRow struct {
	Collection string `gorm:"primaryKey;size:512"`
	ID         string `gorm:"primaryKey;size:128"`
	Data       datatypes.JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

// ListOptions control ordering & result size for List.
type ListOptions struct {
	// OrderByCreatedAtDesc returns newest documents first.
	OrderByCreatedAtDesc bool

	// Limit caps the number of documents returned; <= 0 means no cap.
	Limit int
}

// Store is a document-store adapter over an encrypted sqlite file.
// It is safe for concurrent use; per-document writes are atomic and
// batches commit in a single transaction.
type Store struct {
	db *gorm.DB
}

// Open opens(or creates) the encrypted db under '<rootDir>/db' &
// migrates the documents schema.
func Open(passPhrase, rootDir string) (*Store, error) {
	dsn, err := dbDSN(passPhrase, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dsn), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents schema: %v", err)
	}

	return &Store{db: db}, nil
}

// NewID returns a generated document id.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Get returns the document at collection/id or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := documentRow{}

	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "docstore get")
	}

	return rowToDocument(&row)
}

// Set writes the document at collection/id. With merge, the given fields
// are folded into the existing body(creating the document if absent) and
// every unspecified field is left untouched. Without merge the body is
// replaced outright.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setInTx(tx, collection, id, fields, merge)
	})
}

// Update merges fields into an existing document. Unlike Set, the
// document must already exist.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := existsInTx(tx, collection, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		return setInTx(tx, collection, id, fields, true)
	})
}

// Delete removes the document at collection/id. Deleting a missing
// document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error

	return errors.Wrap(err, "docstore delete")
}

// List returns the documents in a collection, optionally newest-first
// and capped by opts.Limit.
func (s *Store) List(ctx context.Context, collection string, opts ListOptions) ([]*Document, error) {
	rows := []documentRow{}

	query := s.db.WithContext(ctx).Where("collection = ?", collection)
	if opts.OrderByCreatedAtDesc {
		query = query.Order("created_at DESC")
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "docstore list")
	}

	docs := make([]*Document, 0, len(rows))
	for i := range rows {
		doc, err := rowToDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// ---------------------------------------------------------------------------------//
// Batch writes
// --------------------------------------------------------------------------------//

type batchOp struct {
	collection string
	id         string
	fields     map[string]interface{}
	delete     bool
}

// Batch stages a group of writes to be committed atomically.
type Batch struct {
	store *Store
	ops   []batchOp
}

func (s *Store) Batch() *Batch {
	return &Batch{store: s}
}

// Set stages a replace-style document write.
func (b *Batch) Set(collection, id string, fields map[string]interface{}) *Batch {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: fields})
	return b
}

// Delete stages a document delete.
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, delete: true})
	return b
}

// Commit applies every staged write in one transaction, so the batch is
// all-or-nothing from the store's perspective.
func (b *Batch) Commit(ctx context.Context) error {
	return b.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			if op.delete {
				err := tx.Where("collection = ? AND id = ?", op.collection, op.id).
					Delete(&documentRow{}).Error
				if err != nil {
					return errors.Wrap(err, "batch delete")
				}
				continue
			}

			if err := setInTx(tx, op.collection, op.id, op.fields, false); err != nil {
				return err
			}
		}

		return nil
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func setInTx(tx *gorm.DB, collection, id string, fields map[string]interface{}, merge bool) error {
	row := documentRow{}

	err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, "docstore set")
	}
	found := err == nil

	body := fields
	if merge && len(row.Data) > 0 {
		existing := map[string]interface{}{}
		if err := json.Unmarshal(row.Data, &existing); err != nil {
			return errors.Wrapf(err, "corrupt document %v/%v", collection, id)
		}
		for key, value := range fields {
			existing[key] = value
		}
		body = existing
	}

	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "docstore set")
	}

	if !found {
		return errors.Wrap(tx.Create(&documentRow{
			Collection: collection,
			ID:         id,
			Data:       data,
		}).Error, "docstore create")
	}

	return errors.Wrap(tx.Model(&documentRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]interface{}{"data": datatypes.JSON(data), "updated_at": time.Now()}).Error,
		"docstore update")
}

func existsInTx(tx *gorm.DB, collection, id string) (bool, error) {
	err := tx.Where("collection = ? AND id = ?", collection, id).Take(&documentRow{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "docstore exists")
	}

	return true, nil
}

func rowToDocument(row *documentRow) (*Document, error) {
	data := map[string]interface{}{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return nil, errors.Wrapf(err, "corrupt document %v/%v", row.Collection, row.ID)
		}
	}

	return &Document{
		Collection: row.Collection,
		ID:         row.ID,
		Data:       data,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func dbDSN(passPhrase, rootDir string) (string, error) {
	dbDir, err := DbDirectory(rootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbName,
		passPhrase,
	), nil
}

// DbDirectory returns(and creates if needed) the directory holding the
// sqlite file i.e '<rootDir>/db'.
func DbDirectory(rootDir string) (string, error) {
	dbDir := filepath.Join(rootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
