// Package api exposes the Quest for Water game service over HTTP.
//
// Endpoints:
//
//	GET    /api/health
//	POST   /api/sessions                  {"config_id":"classic","manual_clock":false}
//	GET    /api/sessions                  ?sort=created|accessed&order=asc|desc&limit=N
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/state
//	POST   /api/sessions/{id}/start       {"difficulty":"easy|normal|hard"}
//	POST   /api/sessions/{id}/move        {"direction":"up|down|left|right"}
//	POST   /api/sessions/{id}/bulk-move   {"moves":["right","down"]}
//	POST   /api/sessions/{id}/tick        manual clock sessions only
//	POST   /api/sessions/{id}/reset
//	GET    /api/sessions/{id}/history     ?page=1&limit=20&order=desc
//	GET    /api/configs
//	POST   /api/configs                   full rule set, saved as <name>.json
//	GET    /api/configs/{name}
//	GET    /api/scoreboard                ?limit=20
//	GET    /api/scoreboard/latest
//	GET    /ws?session={id}
//
// Errors are returned as {"error": "...", "code": N}. Unknown sessions,
// rule sets and an empty scoreboard are 404; bad directions, difficulties,
// oversized bulk moves and invalid rule sets are 400; ticking a session whose
// clock is driven by the server is 409.
package api
