package node

import "errors"

// User-visible failures. Everything else is logged and absorbed inside the
// loops (malformed datagrams) or retried per peer (transient network errors).
var (
	// ErrFileNotFound: the hash is not held locally and no peer is known to
	// hold it.
	ErrFileNotFound = errors.New("file not found in network")
	// ErrAllPeersFailed: every candidate peer was tried and failed; the last
	// underlying error is attached.
	ErrAllPeersFailed = errors.New("failed to download file from any peer")
	// ErrBadResponse: the peer answered a file_request with something other
	// than file_data.
	ErrBadResponse = errors.New("unexpected transfer response")
	// ErrHashMismatch: the downloaded bytes do not hash to the requested
	// content hash.
	ErrHashMismatch = errors.New("downloaded file failed hash verification")
)
