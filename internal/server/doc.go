// Package server provides HTTP routing, middleware, the OAuth callback and the sync job API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers Go 1.22 method patterns on an [http.ServeMux], so a
// request with the wrong method gets 405 without any handler code.
//
// [Logging] and [Recover] are the middleware used by `ytsort serve`.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the Google authorization code flow for `ytsort auth youtube`.
// It checks the state parameter, exchanges the code, hands the token to a [TokenSink]
// and reports the outcome once through a channel. Only the first callback is processed.
//
// # Sync API
//
// [SyncHandler] lets a browser or script drive the sync engine the same way the CLI does:
// create a job, poll it one batch at a time, pause and resume. Engine errors map onto
// status codes: a second active job or an illegal transition is 409, a missing job 404,
// missing credentials 401.
package server
