// Package router dispatches inbound messages to registered handlers.
//
// User channel messages are matched against a pattern trie and every matching
// handler is invoked; when none match, the default handler (if any) receives
// the message. Topics under the reserved service prefix carry replies to
// keygen, presence, link, error and me requests and are decoded into their
// protocol bodies before dispatch.
//
// Failures never propagate back to the transport. Decode errors, non-success
// status replies, handler errors and handler panics are all reported through
// the error handler. When no error handler is set they are dropped.
package router
