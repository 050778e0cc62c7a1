// Package session stores Quest for Water sessions in memory with optional
// file persistence.
//
// Manager keeps sessions keyed by lower-cased ID. IDs are either supplied by
// the caller or generated as four hex characters, and must be safe to use as
// file names.
//
// FilePersistence writes one JSON document per session holding the rule set
// ID, the manual clock flag and the full game state, so a running game can be
// restored after a restart.
//
//	configs, _ := config.NewManager("configs")
//	store, _ := session.NewFilePersistence("sessions", configs)
//	manager := session.NewManagerWithPersistence(store)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", configs.GetDefault(), "classic")
package session
