// Package core implements the delivery engine of the webhook dispatcher:
// the event and attempt domain model, the claim/dispatch/retry state
// machine, HMAC request signing, the backoff scheduler, and the outbound
// HTTP sender. Persistence is abstracted behind EventStore; the SQL
// implementation lives in store/sql.
package core
