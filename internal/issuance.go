package internal

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type schemaSource interface {
	Get(ctx context.Context, id uuid.UUID) (*gemcert.CategorySchema, error)
}

type typeSource interface {
	TypeExists(ctx context.Context, slug string) (bool, error)
}

type certificateStore interface {
	Insert(ctx context.Context, certs ...*gemcert.Certificate) error
	GetByID(ctx context.Context, id uuid.UUID) (*gemcert.Certificate, error)
	List(ctx context.Context, q *gemcert.CertificateQuery) ([]*gemcert.Certificate, int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	CountByType(ctx context.Context) ([]gemcert.TypeStats, error)
}

// IssuanceService drives the certificate issuance pipeline: validate the
// submission, promote staged files to permanent storage, allocate a
// certificate number, persist the record. Promoted files are tracked on a
// compensation list and removed again when a later phase fails, so a failed
// issuance leaves no orphaned objects behind.
type IssuanceService struct {
	registry  schemaSource
	types     typeSource
	clients   gemcert.ClientDirectory
	store     gemcert.ObjectStore
	repo      certificateStore
	allocator *NumberAllocator
	storage   gemcert.StorageConfig
	query     gemcert.QueryConfig
}

func NewIssuanceService(
	registry schemaSource,
	types typeSource,
	clients gemcert.ClientDirectory,
	store gemcert.ObjectStore,
	repo certificateStore,
	allocator *NumberAllocator,
	storage gemcert.StorageConfig,
	query gemcert.QueryConfig,
) *IssuanceService {
	return &IssuanceService{
		registry:  registry,
		types:     types,
		clients:   clients,
		store:     store,
		repo:      repo,
		allocator: allocator,
		storage:   storage,
		query:     normalizePaging(query),
	}
}

// compensator collects promoted objects and removes them again in reverse
// order when issuance fails past the promotion phase. Cleanup failures are
// logged and swallowed: compensation is best effort.
type compensator struct {
	store gemcert.ObjectStore
	refs  []gemcert.ObjectRef
}

func (c *compensator) add(ref gemcert.ObjectRef) {
	c.refs = append(c.refs, ref)
}

func (c *compensator) run(ctx context.Context) {
	for i := len(c.refs) - 1; i >= 0; i-- {
		ref := c.refs[i]
		if err := c.store.Remove(ctx, ref.Bucket, ref.Key); err != nil {
			zap.S().Warnw("failed to remove promoted object during rollback",
				"bucket", ref.Bucket, "key", ref.Key, "error", err)
		}
	}
}

func (s *IssuanceService) Issue(ctx context.Context, req *gemcert.IssueRequest) (*gemcert.IssueResult, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	comp := &compensator{store: s.store}
	cert, err := s.buildCertificate(ctx, req, comp)
	if err != nil {
		comp.run(ctx)
		return nil, err
	}

	if err := s.persist(ctx, cert); err != nil {
		comp.run(ctx)
		return nil, err
	}

	zap.S().Infow("certificate issued",
		"certificate_number", cert.CertificateNumber, "type", cert.Type)
	return &gemcert.IssueResult{UUID: cert.UUID, CertificateNumber: cert.CertificateNumber}, nil
}

// IssueBulk issues all requests or none. Validation and promotion run per
// item against a shared compensation list; the records land in a single
// transaction, so any failure rolls back every promoted object and writes
// nothing.
func (s *IssuanceService) IssueBulk(ctx context.Context, reqs []*gemcert.IssueRequest) ([]*gemcert.IssueResult, error) {
	if len(reqs) == 0 {
		return []*gemcert.IssueResult{}, nil
	}

	for i, req := range reqs {
		if err := s.validate(ctx, req); err != nil {
			if ce, ok := gemcert.AsCertError(err); ok {
				return nil, ce.WithDetail("item", i)
			}
			return nil, err
		}
	}

	comp := &compensator{store: s.store}
	certs := make([]*gemcert.Certificate, 0, len(reqs))
	for _, req := range reqs {
		cert, err := s.buildCertificate(ctx, req, comp)
		if err != nil {
			comp.run(ctx)
			return nil, err
		}
		certs = append(certs, cert)
	}

	if err := s.persistBatch(ctx, certs); err != nil {
		comp.run(ctx)
		return nil, err
	}

	results := make([]*gemcert.IssueResult, len(certs))
	for i, cert := range certs {
		results[i] = &gemcert.IssueResult{UUID: cert.UUID, CertificateNumber: cert.CertificateNumber}
	}
	zap.S().Infow("bulk certificates issued", "count", len(results))
	return results, nil
}

// buildCertificate runs the promote and allocate phases for one request.
// Promoted objects are registered with the shared compensator.
func (s *IssuanceService) buildCertificate(ctx context.Context, req *gemcert.IssueRequest, comp *compensator) (*gemcert.Certificate, error) {
	photo, err := s.promote(ctx, req.PhotoFileID, comp)
	if err != nil {
		return nil, err
	}
	brandLogo, err := s.promote(ctx, req.LogoFileID, comp)
	if err != nil {
		return nil, err
	}
	rearLogo, err := s.promote(ctx, req.RearLogoFileID, comp)
	if err != nil {
		return nil, err
	}

	number, err := s.allocator.Next(ctx)
	if err != nil {
		return nil, err
	}

	return &gemcert.Certificate{
		UUID:              uuid.New(),
		CertificateNumber: number,
		Type:              req.Type,
		ClientID:          req.ClientID,
		CategoryID:        req.CategoryID,
		Fields:            req.Fields,
		Photo:             photo,
		BrandLogo:         brandLogo,
		RearBrandLogo:     rearLogo,
		CreatedBy:         req.CreatedBy,
	}, nil
}

func (s *IssuanceService) validate(ctx context.Context, req *gemcert.IssueRequest) error {
	if req == nil {
		return gemcert.NewValidationError("request", "request cannot be nil")
	}
	if req.Type == "" {
		return gemcert.NewValidationError("type", "type cannot be empty")
	}
	exists, err := s.types.TypeExists(ctx, req.Type)
	if err != nil {
		return err
	}
	if !exists {
		return gemcert.NewTypeNotFoundError(req.Type)
	}

	client, err := s.clients.FindClient(ctx, req.ClientID)
	if err != nil {
		return err
	}
	if client == nil {
		return gemcert.NewClientNotFoundError(req.ClientID.String())
	}

	if req.CategoryID == nil {
		return nil
	}
	schema, err := s.registry.Get(ctx, *req.CategoryID)
	if err != nil {
		return err
	}
	if !schema.IsActive {
		return gemcert.NewSchemaInactiveError(schema.UUID.String())
	}
	return validateFields(schema, req.Fields)
}

// validateFields enforces required fields and per-field validation rules.
// File fields arrive as staged ids outside the value map and are skipped.
// Conditional display logic deliberately does not exempt a hidden required
// field; admins mark conditionally shown fields optional.
func validateFields(schema *gemcert.CategorySchema, values gemcert.FieldValues) error {
	for _, field := range schema.Fields {
		if field.FieldType == gemcert.FieldTypeFile {
			continue
		}
		value := values.Lookup(field.FieldName)

		if field.IsRequired && value.IsEmpty() {
			label := field.Label
			if label == "" {
				label = field.FieldName
			}
			return gemcert.NewRequiredFieldMissingError(label)
		}
		if value.IsEmpty() {
			continue
		}
		if err := applyValidationRules(field, value); err != nil {
			return err
		}
	}
	return nil
}

func applyValidationRules(field gemcert.FieldDefinition, value gemcert.FieldValue) error {
	rules := field.Validation
	if rules == nil {
		return nil
	}
	label := field.Label
	if label == "" {
		label = field.FieldName
	}
	fail := func(message string) error {
		if rules.CustomErrorMessage != "" {
			message = rules.CustomErrorMessage
		}
		return gemcert.NewValidationError(label, message)
	}

	text := value.String()
	if rules.MinLength != nil && utf8.RuneCountInString(text) < *rules.MinLength {
		return fail(fmt.Sprintf("%s must be at least %d characters", label, *rules.MinLength))
	}
	if rules.MaxLength != nil && utf8.RuneCountInString(text) > *rules.MaxLength {
		return fail(fmt.Sprintf("%s must be at most %d characters", label, *rules.MaxLength))
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern for field %s: %w", field.FieldName, err)
		}
		if !re.MatchString(text) {
			return fail(fmt.Sprintf("%s has an invalid format", label))
		}
	}

	if rules.MinValue != nil || rules.MaxValue != nil {
		n, ok := value.Number()
		if !ok {
			return fail(fmt.Sprintf("%s must be a number", label))
		}
		if rules.MinValue != nil && n < *rules.MinValue {
			return fail(fmt.Sprintf("%s must be at least %v", label, *rules.MinValue))
		}
		if rules.MaxValue != nil && n > *rules.MaxValue {
			return fail(fmt.Sprintf("%s must be at most %v", label, *rules.MaxValue))
		}
	}
	return nil
}

// promote moves one staged object into the permanent bucket under the same
// key. A missing staged object is a warning, not a failure: the certificate
// issues without the file. A copy failure aborts issuance; a failed staging
// cleanup only logs, the record of truth is the permanent bucket.
func (s *IssuanceService) promote(ctx context.Context, fileID string, comp *compensator) (*gemcert.ObjectRef, error) {
	if fileID == "" {
		return nil, nil
	}

	staging := s.storage.StagingBucket
	permanent := s.storage.PermanentBucket

	if _, err := s.store.Stat(ctx, staging, fileID); err != nil {
		if s.store.IsObjectNotFound(err) {
			zap.S().Warnw("staged file missing, issuing without it",
				"bucket", staging, "key", fileID)
			return nil, nil
		}
		return nil, gemcert.NewFilePromotionFailedError(fileID, err)
	}

	if err := s.store.Copy(ctx, staging, fileID, permanent, fileID); err != nil {
		return nil, gemcert.NewFilePromotionFailedError(fileID, err)
	}
	ref := gemcert.ObjectRef{Bucket: permanent, Key: fileID}
	comp.add(ref)

	if err := s.store.Remove(ctx, staging, fileID); err != nil {
		zap.S().Warnw("failed to remove staged file after promotion",
			"bucket", staging, "key", fileID, "error", err)
	}
	return &ref, nil
}

// persist writes one certificate, retrying once with a fresh number when
// the insert hits the certificate number unique index.
func (s *IssuanceService) persist(ctx context.Context, cert *gemcert.Certificate) error {
	err := s.repo.Insert(ctx, cert)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return gemcert.NewPersistFailedError(err)
	}

	zap.S().Warnw("certificate number collision, reallocating",
		"certificate_number", cert.CertificateNumber)
	number, allocErr := s.allocator.Next(ctx)
	if allocErr != nil {
		return allocErr
	}
	cert.CertificateNumber = number
	if err := s.repo.Insert(ctx, cert); err != nil {
		return gemcert.NewPersistFailedError(err)
	}
	return nil
}

func (s *IssuanceService) persistBatch(ctx context.Context, certs []*gemcert.Certificate) error {
	err := s.repo.Insert(ctx, certs...)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return gemcert.NewPersistFailedError(err)
	}

	zap.S().Warnw("certificate number collision in batch, reallocating all")
	for _, cert := range certs {
		number, allocErr := s.allocator.Next(ctx)
		if allocErr != nil {
			return allocErr
		}
		cert.CertificateNumber = number
	}
	if err := s.repo.Insert(ctx, certs...); err != nil {
		return gemcert.NewPersistFailedError(err)
	}
	return nil
}

// GetCertificate returns one certificate enriched for display.
func (s *IssuanceService) GetCertificate(ctx context.Context, id uuid.UUID) (*gemcert.CertificateView, error) {
	cert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.enrich(ctx, cert, map[uuid.UUID]*gemcert.ClientSummary{}, map[uuid.UUID]*gemcert.CategorySchema{})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *IssuanceService) ListCertificates(ctx context.Context, q *gemcert.CertificateQuery) (*gemcert.CertificatePage, error) {
	certs, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	page := 1
	limit := s.query.DefaultPageSize
	if q != nil {
		if q.Page > 1 {
			page = q.Page
		}
		limit = clampLimit(q.Limit, s.query)
	}

	clientCache := map[uuid.UUID]*gemcert.ClientSummary{}
	schemaCache := map[uuid.UUID]*gemcert.CategorySchema{}
	views := make([]*gemcert.CertificateView, 0, len(certs))
	for _, cert := range certs {
		view, err := s.enrich(ctx, cert, clientCache, schemaCache)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	totalPages := pageCount(total, limit)
	return &gemcert.CertificatePage{
		Data:       views,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

func (s *IssuanceService) DeleteCertificate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *IssuanceService) Stats(ctx context.Context) ([]gemcert.TypeStats, error) {
	return s.repo.CountByType(ctx)
}

// enrich attaches the client summary, schema summary, rendered description
// and signed URLs. Lookup failures for display data degrade to a partial
// view instead of failing the read.
func (s *IssuanceService) enrich(
	ctx context.Context,
	cert *gemcert.Certificate,
	clientCache map[uuid.UUID]*gemcert.ClientSummary,
	schemaCache map[uuid.UUID]*gemcert.CategorySchema,
) (*gemcert.CertificateView, error) {
	view := &gemcert.CertificateView{Certificate: *cert}

	client, cached := clientCache[cert.ClientID]
	if !cached {
		found, err := s.clients.FindClient(ctx, cert.ClientID)
		if err != nil {
			zap.S().Warnw("client lookup failed during enrichment",
				"client_id", cert.ClientID, "error", err)
		}
		client = found
		clientCache[cert.ClientID] = client
	}
	view.Client = client

	if cert.CategoryID != nil {
		schema, cached := schemaCache[*cert.CategoryID]
		if !cached {
			loaded, err := s.registry.Get(ctx, *cert.CategoryID)
			if err != nil && !gemcert.IsNotFound(err) {
				zap.S().Warnw("schema lookup failed during enrichment",
					"schema_id", *cert.CategoryID, "error", err)
			}
			schema = loaded
			schemaCache[*cert.CategoryID] = schema
		}
		if schema != nil {
			view.Schema = &gemcert.SchemaSummary{
				UUID:     schema.UUID,
				Name:     schema.Name,
				Group:    schema.Group,
				IsActive: schema.IsActive,
			}
			view.Description = gemcert.RenderDescription(schema.DescriptionTemplate, cert.Fields)
		}
	}

	view.PhotoURL = s.sign(ctx, cert.Photo)
	view.BrandLogoURL = s.sign(ctx, cert.BrandLogo)
	view.RearBrandLogoURL = s.sign(ctx, cert.RearBrandLogo)
	return view, nil
}

func (s *IssuanceService) sign(ctx context.Context, ref *gemcert.ObjectRef) string {
	if ref == nil || ref.IsZero() {
		return ""
	}
	ttl := s.storage.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	url, err := s.store.SignedURL(ctx, ref.Bucket, ref.Key, ttl)
	if err != nil {
		zap.S().Warnw("failed to presign object url",
			"bucket", ref.Bucket, "key", ref.Key, "error", err)
		return ""
	}
	return url
}
