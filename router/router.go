package router

import (
	"database/sql"
	"net/http"

	"securenotes/config"
	docHandler "securenotes/internal/document"
	docRepo "securenotes/internal/document/repository"
	docSvc "securenotes/internal/document/service"
	eventRepo "securenotes/internal/event/repository"
	leaseHandler "securenotes/internal/lease"
	leaseRepo "securenotes/internal/lease/repository"
	leaseSvc "securenotes/internal/lease/service"
	replHandler "securenotes/internal/replication"
	replRepo "securenotes/internal/replication/repository"
	replSvc "securenotes/internal/replication/service"
	shareHandler "securenotes/internal/share"
	shareRepo "securenotes/internal/share/repository"
	shareSvc "securenotes/internal/share/service"
	"securenotes/middleware"
	"securenotes/pkg/metrics"
	"securenotes/socket"
)

// Setup wires every store, service and handler together and returns the
// root handler. Everything is constructed here and passed by reference;
// no store lives in package-level state, so tests can build isolated
// instances.
func Setup(db *sql.DB, hub *socket.Hub, cfg config.Config, m *metrics.Registry) http.Handler {
	mux := http.NewServeMux()

	events := eventRepo.NewEventRepository(db, m)
	docs := docRepo.NewDocumentRepository(db, m)
	leases := leaseRepo.NewLeaseRepository(db)
	shares := shareRepo.NewShareRepository(db)
	seen := replRepo.NewSeenRepository(db)

	leaseService := leaseSvc.NewLeaseService(leases, docs, events, cfg.LeaseTTL)
	docService := docSvc.NewDocumentService(docs, leaseService, events, hub)
	shareService := shareSvc.NewShareService(shares, docService, leaseService, events)
	replService := replSvc.NewReplicationService(events, docs, seen, m, hub)

	dh := docHandler.NewDocumentHandler(docService)
	lh := leaseHandler.NewLeaseHandler(leaseService)
	sh := shareHandler.NewShareHandler(shareService)
	rh := replHandler.NewReplicationHandler(replService)

	auth := middleware.Auth(cfg.JWTSecret)
	replAuth := middleware.ReplicationAuth(cfg.ReplSecret, m)

	// WebSocket notification feed
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		socket.ServeWs(hub, w, r, userID)
	})
	mux.Handle("/ws", auth(wsHandler))

	// Documents
	mux.Handle("/api/documents/create", auth(http.HandlerFunc(dh.CreateDocument)))
	mux.Handle("/api/documents", auth(http.HandlerFunc(dh.GetDocuments)))
	mux.Handle("/api/documents/get", auth(http.HandlerFunc(dh.GetDocument)))
	mux.Handle("/api/documents/update", auth(http.HandlerFunc(dh.UpdateDocument)))

	// Leases
	mux.Handle("/api/documents/lock", auth(http.HandlerFunc(lh.AcquireLease)))
	mux.Handle("/api/documents/unlock", auth(http.HandlerFunc(lh.ReleaseLease)))

	// Shares
	mux.Handle("/api/shares/create", auth(http.HandlerFunc(sh.CreateShare)))
	mux.Handle("/api/shares/revoke", auth(http.HandlerFunc(sh.RevokeShare)))
	mux.Handle("/api/shares/get", auth(http.HandlerFunc(sh.GetSharedDocument)))
	mux.Handle("/api/shares/lock", auth(http.HandlerFunc(sh.AcquireSharedLease)))
	mux.Handle("/api/shares/unlock", auth(http.HandlerFunc(sh.ReleaseSharedLease)))
	mux.Handle("/api/shares/update", auth(http.HandlerFunc(sh.UpdateSharedDocument)))

	// Replication: pull is open to peers, push is HMAC-authenticated.
	mux.HandleFunc("/replicate/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			replAuth(http.HandlerFunc(rh.PushEvents)).ServeHTTP(w, r)
			return
		}
		rh.PullEvents(w, r)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	mux.Handle("/metrics", m.Handler())

	return middleware.CORSMiddleware(mux)
}
