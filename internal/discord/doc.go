// Package discord implements delivery.Channel on top of discordgo.
//
// A channel posts either through an incoming webhook URL or through a bot
// token plus channel id. Both flavours send the caption as one message and the
// attachment as a second message, and neither retries a failed request.
package discord
