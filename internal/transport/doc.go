// Package transport receives wire-encoded requests over UDP datagrams and
// QUIC streams and hands decoded requests to a handler.
//
// Every message is one request record, zero-padded to FrameSize bytes.
package transport
