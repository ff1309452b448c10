// Package agentapi is the HTTP client for the remote conversational agent.
//
// # Endpoints
//
//	POST   {base}/sessions                 {"agent_id"}  -> {"session_id"}
//	POST   {base}/sessions/{id}/messages   {"message"}   -> {"text"}
//	DELETE {base}/sessions/{id}
//
// # Authentication
//
// Every request carries a bearer JWT signed with HS256 using the consumer
// secret. The iss claim is the consumer key and sub names the agent (for
// session creation) or the session (for everything after). Tokens expire
// after five minutes.
//
// # Errors
//
// Non-2xx replies are decoded from {"error"} or {"message"} bodies and
// returned as *chaterr.Error. A 404 or a message mentioning the session is
// classified as a session error so callers can re-initialize.
package agentapi
