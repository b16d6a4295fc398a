// Package protocol defines the emitter wire surface used by the client:
// reserved service topics, the JSON request and reply bodies exchanged on
// them, status codes and the structured status error, and the formatting of
// channel addresses with their query-style options.
//
// Channel addresses have the form
//
//	<key>/<channel>/[?opt1&opt2...]
//	<key>/$share/<group>/<channel>/[?opt1&opt2...]
//
// Option tokens starting with "+" are client-side flags (QoS, retain). They
// are read by Header and never appear in the formatted address.
package protocol
