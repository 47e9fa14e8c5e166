// Package delivery turns a resolved post into the (caption, attachment) pair
// handed to a chat channel and performs the send.
//
// Captions always carry a link so an oversize post degrades to link-only
// instead of being dropped.
package delivery
