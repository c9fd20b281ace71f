// Package internal contains the core implementation packages for mdpreview.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - document: Document sources (file watching, snapshots, file loading)
//   - metadata: Front-matter parsing, defaults and merge resolution
//   - template: Metadata substitution templates and their store
//   - stages: Post-render transform stages and their registry
//   - pipeline: Markdown rendering followed by the configured stages
//   - cache: Render cache keyed by document body and metadata
//   - theme: Built-in and on-disk stylesheets
//   - mount: Surface mounting, update guard and diagnostics
//   - patch: Incremental content patches that keep the scroll position
//   - bridge: Delivery of rendered props to connected pages
//   - engine: Debounced render loop tying the pieces above together
//   - server: HTTP server, websocket hub and settings API
//   - views: The preview page shell
//   - config, settings: Configuration loading, validation and snapshots
//   - logging, errors: Structured logging and typed errors
//   - watcher: Debounced file system monitoring
//   - validation: URL and origin checks
//   - version: Build information
//
// # Data Flow
//
// A change to the document travels one way:
//
//   - document emits a snapshot when the file changes
//   - engine waits for the quiet window, then renders through pipeline
//   - cache short-circuits renders of unchanged content
//   - patch applies the result in place when a page is attached,
//     otherwise mount and bridge deliver full props
//   - server broadcasts over the websocket hub to every open page
package internal
