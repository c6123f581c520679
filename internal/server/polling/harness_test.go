package polling

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/dmitrijs2005/casely/internal/server/origin"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casely/internal/server/services"
	"github.com/dmitrijs2005/casely/internal/server/storetest"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type originRecord struct {
	id     int64
	kind   string
	detail string
	chats  string
}

// fakeOrigin serves the three origin endpoints from an in-memory list
// sorted by id descending.
type fakeOrigin struct {
	mu         sync.Mutex
	records    []originRecord
	listStatus int
	failDetail map[int64]int
	detailHits map[int64]int
}

func (f *fakeOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case origin.ListPath:
		if f.listStatus != 0 {
			w.WriteHeader(f.listStatus)
			return
		}
		page := int(body["pageNum"].(float64))
		size := int(body["numberPerPage"].(float64))
		items := []map[string]any{}
		for i := (page - 1) * size; i < page*size && i < len(f.records); i++ {
			items = append(items, map[string]any{"id": f.records[i].id, "businessWorkDsticText": f.records[i].kind})
		}
		writeEnvelope(w, map[string]any{"contractList": items})

	case origin.DetailPath:
		id := int64(body["contract"].(map[string]any)["id"].(float64))
		f.detailHits[id]++
		if code, ok := f.failDetail[id]; ok {
			w.WriteHeader(code)
			return
		}
		rec, ok := f.find(id)
		if !ok {
			writeRaw(w, `{"returnCode":404}`)
			return
		}
		writeRaw(w, fmt.Sprintf(`{"returnCode":0,"appData":%s}`, rec.detail))

	case origin.ChatsPath:
		id := int64(body["tempMap"].(map[string]any)["entityId"].(float64))
		rec, _ := f.find(id)
		chats := rec.chats
		if chats == "" {
			chats = "[]"
		}
		writeRaw(w, fmt.Sprintf(`{"returnCode":0,"appData":{"chatList":%s}}`, chats))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOrigin) find(id int64) (originRecord, bool) {
	for _, r := range f.records {
		if r.id == id {
			return r, true
		}
	}
	return originRecord{}, false
}

func (f *fakeOrigin) set(fn func(f *fakeOrigin)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeOrigin) hits(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailHits[id]
}

func writeEnvelope(w http.ResponseWriter, appData any) {
	b, _ := json.Marshal(map[string]any{"returnCode": 0, "appData": appData})
	_, _ = w.Write(b)
}

func writeRaw(w http.ResponseWriter, s string) {
	_, _ = io.WriteString(w, s)
}

func manual(id int64) originRecord {
	return originRecord{id: id, kind: "매뉴얼", detail: fmt.Sprintf(`{"id":%d,"fileText":"big"}`, id)}
}

type harness struct {
	db        *storetest.DB
	origin    *fakeOrigin
	client    *origin.Client
	contracts *services.ContractService
	cursor    *services.CursorStore
	creds     *services.CredentialStore
	poller    *Poller
}

func newHarness(t *testing.T, cfg Config, minID int64, records ...originRecord) *harness {
	t.Helper()
	ctx := context.Background()

	fo := &fakeOrigin{records: records, failDetail: map[int64]int{}, detailHits: map[int64]int{}}
	srv := httptest.NewServer(fo)
	t.Cleanup(srv.Close)

	db := storetest.New(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	h := &harness{
		db:        db,
		origin:    fo,
		contracts: services.NewContractService(db.RW, db.RO, rm),
		cursor:    services.NewCursorStore(db.RW, db.RO, rm, minID),
		creds:     services.NewCredentialStore(db.RW, db.RO, rm),
	}

	client, err := origin.NewClient(origin.Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Observer: h.creds})
	require.NoError(t, err)
	h.client = client

	_, err = h.creds.Save(ctx, models.Credential{Token: "T", PrincipalID: "u1"})
	require.NoError(t, err)

	h.poller = New(cfg, Deps{
		Fetcher:     client,
		Contracts:   h.contracts,
		Cursor:      h.cursor,
		Credentials: h.creds,
	})
	return h
}

func (h *harness) storedIDs(t *testing.T) []int64 {
	t.Helper()
	items, _, err := h.contracts.ListSince(context.Background(), -1, true)
	require.NoError(t, err)
	out := []int64{}
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func (h *harness) storedCursor(t *testing.T) int64 {
	t.Helper()
	v, err := h.cursor.Stored(context.Background())
	require.NoError(t, err)
	return v
}

func credOf(t *testing.T, h *harness) models.Credential {
	t.Helper()
	c, err := h.creds.Load(context.Background())
	require.NoError(t, err)
	return c
}
