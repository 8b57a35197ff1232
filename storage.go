package gemcert

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ObjectStat describes a stored object.
type ObjectStat struct {
	Size        int64
	ContentType string
}

// ObjectStore abstracts the S3-compatible blob store holding staged uploads
// and promoted certificate files.
type ObjectStore interface {
	// Put stores an object, replacing any existing one under the key.
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error

	// Stat returns metadata for an object. A missing object is reported
	// via an error satisfying IsObjectNotFound, not a nil result.
	Stat(ctx context.Context, bucket, key string) (*ObjectStat, error)

	// Copy performs a server-side copy between buckets.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// Remove deletes an object. Removing a missing object is not an error.
	Remove(ctx context.Context, bucket, key string) error

	// SignedURL returns a presigned GET URL valid for the given duration.
	SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)

	// IsObjectNotFound classifies an error from Stat or Copy as a missing
	// object rather than a transport failure.
	IsObjectNotFound(err error) bool
}

// ClientDirectory is the existence lookup into the client roster. Client
// CRUD lives elsewhere; issuance only needs to confirm the target exists.
type ClientDirectory interface {
	// FindClient returns the client summary, or (nil, nil) when no such
	// client exists.
	FindClient(ctx context.Context, id uuid.UUID) (*ClientSummary, error)
}

// CounterStore hands out monotonically increasing sequence values per
// counter key. Implementations must be safe under concurrent callers:
// two calls for the same key never observe the same value.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
}

// SchemaRegistry manages category schema definitions.
type SchemaRegistry interface {
	Create(ctx context.Context, who Identity, req *SchemaCreate) (*CategorySchema, error)
	Get(ctx context.Context, id uuid.UUID) (*CategorySchema, error)
	List(ctx context.Context, q *SchemaQuery) (*SchemaPage, error)
	Update(ctx context.Context, id uuid.UUID, req *SchemaUpdate) (*CategorySchema, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceFields(ctx context.Context, id uuid.UUID, fields []FieldDefinition) (*CategorySchema, error)
	ReorderFields(ctx context.Context, id uuid.UUID, fieldIDs []string) (*CategorySchema, error)
	Duplicate(ctx context.Context, who Identity, id uuid.UUID) (*CategorySchema, error)

	// ActiveForGroup returns the single active, non-deleted schema for a
	// certificate group, or (nil, nil) when the group has none.
	ActiveForGroup(ctx context.Context, group string) (*CategorySchema, error)

	// ListAvailable lists non-deleted schemas of a group for selection UIs.
	ListAvailable(ctx context.Context, group string) ([]SchemaSummary, error)
}

// AttributeCatalog manages the option values that feed schema dropdowns.
type AttributeCatalog interface {
	Create(ctx context.Context, who Identity, group, attrType string, req *AttributeCreate) (*Attribute, error)
	List(ctx context.Context, group, attrType, search string) ([]*Attribute, error)
	Update(ctx context.Context, id uuid.UUID, req *AttributeUpdate) (*Attribute, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TypeRegistry lists certificate types and validates group slugs.
type TypeRegistry interface {
	ListTypes(ctx context.Context) ([]*CertificateType, error)

	// TypeExists reports whether a non-deleted certificate type with the
	// slug exists.
	TypeExists(ctx context.Context, slug string) (bool, error)
}

// Issuer turns validated submissions into numbered certificates.
type Issuer interface {
	Issue(ctx context.Context, req *IssueRequest) (*IssueResult, error)

	// IssueBulk issues all requests or none of them.
	IssueBulk(ctx context.Context, reqs []*IssueRequest) ([]*IssueResult, error)
}

// CertificateReader serves issued certificates for display.
type CertificateReader interface {
	GetCertificate(ctx context.Context, id uuid.UUID) (*CertificateView, error)
	ListCertificates(ctx context.Context, q *CertificateQuery) (*CertificatePage, error)
	DeleteCertificate(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) ([]TypeStats, error)
}

// FormProvider builds the client-facing form projection of active schemas.
type FormProvider interface {
	// FormSchemaForGroup enriches the active schema of a group with
	// resolved options and its JSON Schema projection.
	FormSchemaForGroup(ctx context.Context, group string) (*FormSchema, error)

	// ManageableFields lists the option-bearing fields of a group's
	// active schema for the attribute admin UI.
	ManageableFields(ctx context.Context, group string) ([]FieldDefinition, error)
}
