// Package http exposes the planning services over JSON/HTTP.
//
// The router serves the following endpoints. Everything except /healthz and
// /api/auth/* requires an `Authorization: Bearer <token>` header.
//   - POST /api/auth/register, POST /api/auth/login: issue a bearer token.
//     Response: {"token","expires_at","user"}.
//   - GET /api/profile, PUT /api/profile: the acting user's account.
//   - GET /api/users: paged account listing.
//   - /api/projects: GET (list), POST, GET|PUT|DELETE /{id}, POST /{id}/close,
//     GET /count?status=.
//   - /api/tasks: GET (list), POST, GET|PUT|DELETE /{id}, PUT /{id}/status,
//     PUT /{id}/assign, PUT /{id}/reassign, GET /count?status=.
//   - /api/availabilities: GET (list), POST, GET|PUT|DELETE /{id},
//     GET /check?user_id=&start_date=&end_date=.
//   - /api/plannings: GET (list), POST, GET|PUT|DELETE /{id}.
//
// Projects, tasks and availabilities carry calendar dates (2006-01-02).
// Plannings carry RFC 3339 timestamps. Listings accept page and page_size and
// answer with {"items","page","page_size","total","has_next","has_prev"}.
// Errors are rendered as {"error_code","message","errors"}.
//
// Request/response DTOs live alongside their respective handlers.
package http
