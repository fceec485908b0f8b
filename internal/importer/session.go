package importer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"product-import-service/internal/models"
)

// correctionKey identifies one correctable failure across rows. An empty
// ErrorMessage marks a pre-resolved database selection for an unmapped
// size/size-group attribute rather than a correction of a cell error.
type correctionKey struct {
	Field        models.AttributeKey
	ErrorMessage string
}

// MappingIncompleteError reports required attributes that resolve to neither a
// mapped column nor a database-side selection. It blocks preview.
type MappingIncompleteError struct {
	Missing []models.AttributeKey
}

func (e *MappingIncompleteError) Error() string {
	return fmt.Sprintf("column mapping incomplete: %d required attributes unresolved", len(e.Missing))
}

// Session is one in-flight import run. It owns the parsed workbook until
// preview, the mapped rows afterwards, and the correction state in between.
// Nothing survives a restart; a session lives for exactly one file selection.
type Session struct {
	ID        string
	TenantID  string
	FileName  string
	CreatedAt time.Time

	mu             sync.Mutex
	state          models.SessionState
	workbook       *Workbook
	headers        []string
	mapping        map[models.AttributeKey]string
	suggested      map[models.AttributeKey]bool
	refs           ReferenceData
	selectedBrand  *models.Reference
	selectedStatus *models.Reference
	rows           []models.MappedRow
	pending        map[correctionKey]models.Correction
	applied        map[correctionKey]models.Correction
	results        []models.UploadResult
	progress       models.UploadProgress
	mediaBaseURL   string

	// media holds embedded-picture blobs extracted from the workbook. It has
	// its own lock because blobs are registered from concurrent row-mapping
	// goroutines while the session lock is held by Preview.
	mediaMu sync.RWMutex
	media   map[string][]byte
}

// NewSession parses nothing itself: it takes an already-read workbook plus the
// reference lists fetched at import start, and pre-populates the column mapping
// from the header row.
func NewSession(tenantID, fileName string, workbook *Workbook, refs ReferenceData, mediaBaseURL string) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		FileName:     fileName,
		CreatedAt:    time.Now(),
		state:        models.SessionStateMapping,
		workbook:     workbook,
		headers:      workbook.Headers,
		refs:         refs,
		pending:      make(map[correctionKey]models.Correction),
		applied:      make(map[correctionKey]models.Correction),
		media:        make(map[string][]byte),
		mediaBaseURL: mediaBaseURL,
	}
	s.mapping, s.suggested = InferColumnMapping(workbook.Headers)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Headers returns the spreadsheet header row.
func (s *Session) Headers() []string {
	return s.headers
}

// Mapping returns a snapshot of the current column mapping.
func (s *Session) Mapping() map[models.AttributeKey]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.AttributeKey]string, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out
}

// Suggested returns the set of attributes whose mapping came from inference and
// has not been manually overridden.
func (s *Session) Suggested() map[models.AttributeKey]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.AttributeKey]bool, len(s.suggested))
	for k, v := range s.suggested {
		out[k] = v
	}
	return out
}

// SetMapping records a manual mapping edit. An empty header unbinds the
// attribute. Manual edits always drop the attribute from the suggested set.
func (s *Session) SetMapping(attr models.AttributeKey, header string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.SessionStateMapping {
		return fmt.Errorf("column mapping is frozen in state %s", s.state)
	}
	if header == "" {
		delete(s.mapping, attr)
	} else {
		s.mapping[attr] = header
	}
	delete(s.suggested, attr)
	return nil
}

// SelectBrand records the database-side brand selection used when the brand
// attribute has no mapped column.
func (s *Session) SelectBrand(ref *models.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedBrand = ref
}

// SelectStatus records the status applied to every imported row.
func (s *Session) SelectStatus(ref *models.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedStatus = ref
}

// References returns the reference lists fetched for this session.
func (s *Session) References() ReferenceData {
	return s.refs
}

// MissingRequired lists the required attributes that currently resolve to
// neither a mapped column nor a database-side selection.
func (s *Session) MissingRequired() []models.AttributeKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingRequiredLocked()
}

func (s *Session) missingRequiredLocked() []models.AttributeKey {
	var missing []models.AttributeKey
	for _, attr := range models.RequiredAttributes() {
		if _, bound := s.mapping[attr]; bound {
			continue
		}
		if attr == models.AttrSize || attr == models.AttrSizeGroup {
			if _, ok := s.presetLocked(attr); ok {
				continue
			}
		}
		missing = append(missing, attr)
	}
	return missing
}

// presetLocked finds a pre-resolved database selection for an unmapped
// attribute, keyed by (field, "") in either correction map.
func (s *Session) presetLocked(attr models.AttributeKey) (models.Correction, bool) {
	key := correctionKey{Field: attr}
	if corr, ok := s.applied[key]; ok {
		return corr, true
	}
	corr, ok := s.pending[key]
	return corr, ok
}

// Preview validates that every required attribute is resolvable, freezes the
// column mapping, and maps all spreadsheet rows. The workbook is discarded once
// mapping completes.
func (s *Session) Preview() ([]models.MappedRow, []models.ErrorGroup, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.SessionStateMapping {
		return nil, nil, 0, fmt.Errorf("preview already generated in state %s", s.state)
	}
	if missing := s.missingRequiredLocked(); len(missing) > 0 {
		return nil, nil, 0, &MappingIncompleteError{Missing: missing}
	}

	presets := make(map[models.AttributeKey]models.Correction)
	for _, attr := range []models.AttributeKey{models.AttrSize, models.AttrSizeGroup} {
		if corr, ok := s.presetLocked(attr); ok {
			presets[attr] = corr
		}
	}

	extractor := NewPhotoExtractor(s.mediaBaseURL, s.StoreMedia)
	mapper := NewRowMapper(s.mapping, s.refs, s.selectedBrand, s.selectedStatus, presets, extractor)
	s.rows = mapper.MapRows(s.workbook.Rows)
	s.workbook = nil
	s.state = models.SessionStatePreview

	groups, errorRowCount := CollectErrorGroups(s.rows)
	return s.rows, groups, errorRowCount, nil
}

// Rows returns the mapped rows produced by Preview.
func (s *Session) Rows() []models.MappedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// ErrorGroups recomputes the aggregated validation failures.
func (s *Session) ErrorGroups() ([]models.ErrorGroup, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CollectErrorGroups(s.rows)
}

// Suggest proposes the closest reference value for an invalid cell value.
func (s *Session) Suggest(field models.AttributeKey, value string) *string {
	return NewSuggester(s.refs).Suggest(field, value)
}

// StageCorrection stores a correction for one (field, errorMessage) group
// without touching the rows yet. An id of -1 marks a free-text correction.
func (s *Session) StageCorrection(field models.AttributeKey, errorMessage, value string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.SessionStateUploading || s.state == models.SessionStateDone {
		return fmt.Errorf("cannot stage corrections in state %s", s.state)
	}
	s.pending[correctionKey{Field: field, ErrorMessage: errorMessage}] = models.Correction{Value: value, ID: id}
	if s.state == models.SessionStatePreview {
		s.state = models.SessionStateCorrecting
	}
	return nil
}

// ApplyCorrections propagates every pending correction into the mapped rows:
// each erroring cell whose (field, errorMessage) matches gets the replacement
// value and id, its error flag cleared and its corrected flag set. The match
// requires Error=true, which makes reapplication a no-op. Pending corrections
// move to the applied map atomically.
func (s *Session) ApplyCorrections() ([]models.ErrorGroup, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.SessionStatePreview && s.state != models.SessionStateCorrecting {
		return nil, 0, fmt.Errorf("cannot apply corrections in state %s", s.state)
	}

	for _, row := range s.rows {
		for _, attr := range models.AllAttributes() {
			cell := row[attr]
			if cell == nil || !cell.Error {
				continue
			}
			corr, ok := s.pending[correctionKey{Field: attr, ErrorMessage: cell.ErrorMessage}]
			if !ok {
				continue
			}
			cell.Value = corr.Value
			if corr.ID != models.FreeTextCorrectionID {
				cell.ID = corr.ID
			}
			cell.Error = false
			cell.Corrected = true
		}
	}

	for key, corr := range s.pending {
		s.applied[key] = corr
	}
	s.pending = make(map[correctionKey]models.Correction)

	groups, errorRowCount := CollectErrorGroups(s.rows)
	return groups, errorRowCount, nil
}

// StoreMedia registers an embedded-picture blob and returns the URL it is
// served at. Safe to call from concurrent row-mapping goroutines.
func (s *Session) StoreMedia(data []byte) string {
	id := uuid.NewString()
	s.mediaMu.Lock()
	s.media[id] = data
	s.mediaMu.Unlock()
	return fmt.Sprintf("/api/v1/imports/%s/media/%s", s.ID, id)
}

// Media returns a stored embedded-picture blob.
func (s *Session) Media(id string) ([]byte, bool) {
	s.mediaMu.RLock()
	defer s.mediaMu.RUnlock()
	data, ok := s.media[id]
	return data, ok
}

// BeginUpload transitions the session into the uploading state and hands back
// the rows to process. It refuses to start while rows still carry uncorrected
// validation errors.
func (s *Session) BeginUpload() ([]models.MappedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.SessionStatePreview && s.state != models.SessionStateCorrecting {
		return nil, fmt.Errorf("cannot start upload in state %s", s.state)
	}
	if len(s.rows) == 0 {
		return nil, fmt.Errorf("no rows to upload")
	}
	if _, errorRowCount := CollectErrorGroups(s.rows); errorRowCount > 0 {
		return nil, fmt.Errorf("%d rows still carry validation errors", errorRowCount)
	}

	s.state = models.SessionStateUploading
	s.progress = models.UploadProgress{Total: len(s.rows), Status: "processing"}
	return s.rows, nil
}

// SetProgress records row-level upload progress.
func (s *Session) SetProgress(processed, total, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Processed = processed
	s.progress.Total = total
	s.progress.PercentComplete = percent
}

// Progress returns the current upload progress.
func (s *Session) Progress() models.UploadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// FinishUpload stores the per-row outcomes and moves the session to its
// terminal state. Partial results from an aborted run are kept so the report
// still covers the processed rows.
func (s *Session) FinishUpload(results []models.UploadResult, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	if runErr != nil {
		s.state = models.SessionStateFailed
		s.progress.Status = "failed"
		return
	}
	s.state = models.SessionStateDone
	s.progress.Status = "completed"
}

// Results returns the upload outcomes recorded by FinishUpload.
func (s *Session) Results() []models.UploadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// RowCount returns the number of surviving mapped rows.
func (s *Session) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// SessionStore holds in-flight import sessions in memory, keyed by id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Put registers a session.
func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// Get looks up a session by id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
