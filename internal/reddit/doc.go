// Package reddit queries ranked subreddit listings over the OAuth API and
// decodes them into media.Post values.
//
// Authentication uses the password grant when a username is configured and
// the client credentials grant otherwise. Tokens are cached and refreshed by
// golang.org/x/oauth2; every request, including token requests, carries the
// configured User-Agent.
package reddit
