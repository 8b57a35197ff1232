package main

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/google/uuid"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// Server is the HTTP front of the certification engine.
type Server struct {
	schemas    gemcert.SchemaRegistry
	attributes gemcert.AttributeCatalog
	types      gemcert.TypeRegistry
	forms      gemcert.FormProvider
	issuer     gemcert.Issuer
	certs      gemcert.CertificateReader
	store      gemcert.ObjectStore
	storage    gemcert.StorageConfig
	health     func(context.Context) error
	mux        *http.ServeMux
}

// SetHealthCheck installs the readiness probe backing /healthz.
func (s *Server) SetHealthCheck(fn func(context.Context) error) {
	s.health = fn
}

// NewServer creates a new Server instance
func NewServer(
	schemas gemcert.SchemaRegistry,
	attributes gemcert.AttributeCatalog,
	types gemcert.TypeRegistry,
	forms gemcert.FormProvider,
	issuer gemcert.Issuer,
	certs gemcert.CertificateReader,
	store gemcert.ObjectStore,
	storage gemcert.StorageConfig,
) *Server {
	return &Server{
		schemas:    schemas,
		attributes: attributes,
		types:      types,
		forms:      forms,
		issuer:     issuer,
		certs:      certs,
		store:      store,
		storage:    storage,
		mux:        http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("/api/v1/schemas", s.handleSchemas)
	s.mux.HandleFunc("/api/v1/schemas/", s.handleSchemaByID)
	s.mux.HandleFunc("/api/v1/attributes", s.handleAttributes)
	s.mux.HandleFunc("/api/v1/attributes/", s.handleAttributeByID)
	s.mux.HandleFunc("/api/v1/certificate-types", s.handleCertificateTypes)
	s.mux.HandleFunc("/api/v1/form-schemas/", s.handleFormSchemas)
	s.mux.HandleFunc("/api/v1/certificates", s.handleCertificates)
	s.mux.HandleFunc("/api/v1/certificates/", s.handleCertificateByID)
	s.mux.HandleFunc("/api/v1/uploads", s.handleUpload)
	s.mux.HandleFunc("/api/v1/files/", s.handleFileURL)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeSuccess(w, http.StatusOK, APIResponse{Success: true})
}

// Start starts the HTTP server on the given port
func (s *Server) Start(port string) error {
	return http.ListenAndServe(":"+port, s.mux)
}

// handleSchemas handles GET and POST /api/v1/schemas
func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := &gemcert.SchemaQuery{
			Group:    r.URL.Query().Get("group"),
			IsActive: queryBool(r, "is_active"),
			Search:   r.URL.Query().Get("search"),
			Page:     queryInt(r, "page", 1),
			Limit:    queryInt(r, "limit", 0),
			SortBy:   r.URL.Query().Get("sort_by"),
			Order:    r.URL.Query().Get("order"),
		}
		page, err := s.schemas.List(r.Context(), query)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, page)

	case http.MethodPost:
		var req gemcert.SchemaCreate
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		schema, err := s.schemas.Create(r.Context(), identityFromRequest(r), &req)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, schema)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSchemaByID handles /api/v1/schemas/{id} and its sub-actions:
// fields, reorder, duplicate, available.
func (s *Server) handleSchemaByID(w http.ResponseWriter, r *http.Request) {
	parts := parsePath(r.URL.Path, "/api/v1/schemas/")
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	// GET /api/v1/schemas/available?group=x
	if parts[0] == "available" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		summaries, err := s.schemas.ListAvailable(r.Context(), r.URL.Query().Get("group"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, summaries)
		return
	}

	id, err := parseUUID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid schema id: %v", err))
		return
	}

	if len(parts) == 2 {
		s.handleSchemaAction(w, r, id, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		schema, err := s.schemas.Get(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, schema)

	case http.MethodPut, http.MethodPatch:
		var req gemcert.SchemaUpdate
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		schema, err := s.schemas.Update(r.Context(), id, &req)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, schema)

	case http.MethodDelete:
		if err := s.schemas.Delete(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, APIResponse{Success: true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSchemaAction(w http.ResponseWriter, r *http.Request, id uuid.UUID, action string) {
	switch action {
	case "fields":
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Fields []gemcert.FieldDefinition `json:"fields"`
		}
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		schema, err := s.schemas.ReplaceFields(r.Context(), id, req.Fields)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, schema)

	case "reorder":
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			FieldIDs []string `json:"field_ids"`
		}
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		schema, err := s.schemas.ReorderFields(r.Context(), id, req.FieldIDs)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, schema)

	case "duplicate":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		schema, err := s.schemas.Duplicate(r.Context(), identityFromRequest(r), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, schema)

	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action: %s", action))
	}
}

// handleAttributes handles GET and POST /api/v1/attributes. The group and
// type travel as query parameters on both.
func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	attrType := r.URL.Query().Get("type")

	switch r.Method {
	case http.MethodGet:
		attrs, err := s.attributes.List(r.Context(), group, attrType, r.URL.Query().Get("search"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, attrs)

	case http.MethodPost:
		var req gemcert.AttributeCreate
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		attr, err := s.attributes.Create(r.Context(), identityFromRequest(r), group, attrType, &req)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, attr)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAttributeByID handles PUT and DELETE /api/v1/attributes/{id}
func (s *Server) handleAttributeByID(w http.ResponseWriter, r *http.Request) {
	parts := parsePath(r.URL.Path, "/api/v1/attributes/")
	if len(parts) != 1 {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	id, err := parseUUID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid attribute id: %v", err))
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req gemcert.AttributeUpdate
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		attr, err := s.attributes.Update(r.Context(), id, &req)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, attr)

	case http.MethodDelete:
		if err := s.attributes.Delete(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, APIResponse{Success: true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCertificateTypes handles GET /api/v1/certificate-types
func (s *Server) handleCertificateTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	types, err := s.types.ListTypes(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, types)
}

// handleFormSchemas handles GET /api/v1/form-schemas/{group} and
// GET /api/v1/form-schemas/{group}/manageable-fields
func (s *Server) handleFormSchemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	parts := parsePath(r.URL.Path, "/api/v1/form-schemas/")
	switch len(parts) {
	case 1:
		form, err := s.forms.FormSchemaForGroup(r.Context(), parts[0])
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, form)
	case 2:
		if parts[1] != "manageable-fields" {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action: %s", parts[1]))
			return
		}
		fields, err := s.forms.ManageableFields(r.Context(), parts[0])
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, fields)
	default:
		writeError(w, http.StatusBadRequest, "invalid path")
	}
}

// handleCertificates handles GET and POST /api/v1/certificates
func (s *Server) handleCertificates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := &gemcert.CertificateQuery{
			Type:   r.URL.Query().Get("type"),
			Search: r.URL.Query().Get("search"),
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 0),
		}
		page, err := s.certs.ListCertificates(r.Context(), query)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, page)

	case http.MethodPost:
		var req gemcert.IssueRequest
		if err := readJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		req.CreatedBy = identityFromRequest(r)
		result, err := s.issuer.Issue(r.Context(), &req)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, result)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCertificateByID handles /api/v1/certificates/{id}, plus the bulk
// and stats endpoints sharing the prefix.
func (s *Server) handleCertificateByID(w http.ResponseWriter, r *http.Request) {
	parts := parsePath(r.URL.Path, "/api/v1/certificates/")
	if len(parts) != 1 {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch parts[0] {
	case "bulk":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var reqs []*gemcert.IssueRequest
		if err := readJSONBody(r, &reqs); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		who := identityFromRequest(r)
		for _, req := range reqs {
			req.CreatedBy = who
		}
		results, err := s.issuer.IssueBulk(r.Context(), reqs)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, results)
		return

	case "stats":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		stats, err := s.certs.Stats(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, stats)
		return
	}

	id, err := parseUUID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid certificate id: %v", err))
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.certs.GetCertificate(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, view)

	case http.MethodDelete:
		if err := s.certs.DeleteCertificate(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, APIResponse{Success: true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUpload handles POST /api/v1/uploads: stage a file in the temp
// bucket and hand back the id to reference from an issue request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const maxUploadSize = 32 << 20
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	fileID := uuid.NewString() + path.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := s.store.Put(r.Context(), s.storage.StagingBucket, fileID, file, contentType); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("upload failed: %v", err))
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]string{"file_id": fileID})
}

// handleFileURL handles GET /api/v1/files/{bucket}/{file_id}: a presigned
// read URL for an object in one of the engine's buckets.
func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	parts := parsePath(r.URL.Path, "/api/v1/files/")
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	bucket, fileID := parts[0], parts[1]
	if bucket != s.storage.StagingBucket && bucket != s.storage.PermanentBucket {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown bucket: %s", bucket))
		return
	}

	url, err := s.store.SignedURL(r.Context(), bucket, fileID, s.storage.SignedURLTTL)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("presign failed: %v", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"url": url})
}
