package node

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/assafd7/p2p-share/pkg/logger"
	"github.com/assafd7/p2p-share/pkg/monitor"
	"github.com/assafd7/p2p-share/pkg/peers"
	"github.com/assafd7/p2p-share/pkg/protocol"
)

// acceptLoop serves the transfer endpoint, one goroutine per connection.
// It exits when Stop closes the listener.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if !n.running.Load() {
				return
			}
			n.tlog.Errorf("accept", "[Transfer] accept error: %v", err)
			continue
		}
		go n.handleConn(conn)
	}
}

func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(n.cfg.IOTimeout))

	br := bufio.NewReader(conn)
	var req protocol.TransferRequest
	if err := protocol.ReadRecord(br, &req); err != nil {
		n.tlog.Warnf("bad-transfer-req", "[Transfer] dropping bad request from %s: %v", conn.RemoteAddr(), err)
		return
	}

	switch req.Type {
	case protocol.TypeFileRequest:
		n.handleFileRequest(conn, req)
	case protocol.TypeSendFile:
		n.handleSendFile(conn, br, req)
	default:
		_ = protocol.WriteRecord(conn, protocol.TransferHeader{
			Type:    protocol.TypeError,
			Message: fmt.Sprintf("unknown request type %q", req.Type),
		})
	}
}

// handleFileRequest streams a locally held file: a file_data header, then
// the raw bytes in fixed-size blocks. No length header; closing the
// connection signals end-of-stream.
func (n *Node) handleFileRequest(conn net.Conn, req protocol.TransferRequest) {
	lf, ok := n.catalog.Local(req.FileHash)
	if !ok {
		_ = protocol.WriteRecord(conn, protocol.TransferHeader{Type: protocol.TypeError, Message: "File not found"})
		return
	}

	file, err := os.Open(lf.Path)
	if err != nil {
		logger.Sugar.Errorf("[Transfer] cannot open local holding %s: %v", lf.Path, err)
		_ = protocol.WriteRecord(conn, protocol.TransferHeader{Type: protocol.TypeError, Message: "File not found"})
		return
	}
	defer file.Close()

	if err := protocol.WriteRecord(conn, protocol.TransferHeader{Type: protocol.TypeFileData}); err != nil {
		return
	}

	logger.Sugar.Infof("[Transfer] sending file %s (%s) to %s", lf.Name, req.FileHash, conn.RemoteAddr())

	buf := make([]byte, n.cfg.BlockSize)
	var total int64
	for {
		conn.SetWriteDeadline(time.Now().Add(n.cfg.IOTimeout))
		nr, rerr := file.Read(buf)
		if nr > 0 {
			total += int64(nr)
			if _, werr := conn.Write(buf[:nr]); werr != nil {
				logger.Sugar.Errorf("[Transfer] send to %s failed after %d bytes: %v", conn.RemoteAddr(), total, werr)
				return
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			logger.Sugar.Errorf("[Transfer] read local holding %s: %v", lf.Path, rerr)
			return
		}
	}

	monitor.RecordSend(total)
	logger.Sugar.Infof("[Transfer] sent %d bytes of %s to %s", total, lf.Name, conn.RemoteAddr())
}

// handleSendFile receives a pushed file: exactly FileSize raw bytes follow
// the request record. The result is verified against the declared hash
// before it becomes a local holding.
func (n *Node) handleSendFile(conn net.Conn, br *bufio.Reader, req protocol.TransferRequest) {
	if req.FileHash == "" || req.FileName == "" || req.FileSize <= 0 {
		n.tlog.Warnf("bad-send-file", "[Transfer] dropping send_file with missing fields from %s", conn.RemoteAddr())
		return
	}
	// a peer must not place files outside the downloads dir
	name := filepath.Base(req.FileName)

	if err := os.MkdirAll(n.cfg.DownloadsDir, 0755); err != nil {
		logger.Sugar.Errorf("[Transfer] cannot create downloads dir: %v", err)
		return
	}
	path := filepath.Join(n.cfg.DownloadsDir, name)
	out, err := os.Create(path)
	if err != nil {
		logger.Sugar.Errorf("[Transfer] cannot create %s: %v", path, err)
		return
	}

	logger.Sugar.Infof("[Transfer] receiving pushed file %s (%s) from %s", name, req.FileHash, conn.RemoteAddr())

	hasher := sha256.New()
	buf := make([]byte, n.cfg.BlockSize)
	remaining := req.FileSize
	for remaining > 0 {
		conn.SetReadDeadline(time.Now().Add(n.cfg.IOTimeout))
		chunk := buf
		if remaining < int64(len(chunk)) {
			chunk = buf[:remaining]
		}
		nr, rerr := br.Read(chunk)
		if nr > 0 {
			remaining -= int64(nr)
			hasher.Write(chunk[:nr])
			if _, werr := out.Write(chunk[:nr]); werr != nil {
				out.Close()
				os.Remove(path)
				logger.Sugar.Errorf("[Transfer] write pushed file %s: %v", path, werr)
				return
			}
		}
		if rerr != nil {
			out.Close()
			os.Remove(path)
			logger.Sugar.Errorf("[Transfer] push from %s ended early, %d bytes missing: %v", conn.RemoteAddr(), remaining, rerr)
			return
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		logger.Sugar.Errorf("[Transfer] close pushed file %s: %v", path, err)
		return
	}

	if sum := hex.EncodeToString(hasher.Sum(nil)); sum != req.FileHash {
		os.Remove(path)
		logger.Sugar.Errorf("[Transfer] pushed file from %s failed verification: got %s want %s", conn.RemoteAddr(), sum, req.FileHash)
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	n.catalog.RecordLocal(req.FileHash, name, abs, n.self)
	n.announceFile(req.FileHash, name)
	monitor.RecordReceive(req.FileSize)
	logger.Sugar.Infof("[Transfer] received pushed file %s (%s)", name, req.FileHash)
}

// RequestFile fetches a file by content hash. An already-held hash returns
// its path with no network I/O. Otherwise candidate peers are tried in
// directory order; peers that fail permanently or exhaust their retries are
// evicted before the next candidate is tried.
func (n *Node) RequestFile(hash, saveAs string) (string, error) {
	if lf, ok := n.catalog.Local(hash); ok {
		return lf.Path, nil
	}

	candidates := n.catalog.CandidatePeers(hash)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, hash)
	}

	name := saveAs
	if name == "" {
		if dn, ok := n.catalog.DisplayName(hash); ok {
			name = dn
		} else {
			name = hash
		}
	}
	name = filepath.Base(name)

	var lastErr error
	for _, peer := range candidates {
		if peer == n.self {
			// stale self entry; the local-holdings check above already failed
			continue
		}
		path, err := n.downloadFrom(peer, hash, name)
		if err == nil {
			return path, nil
		}
		lastErr = err
		logger.Sugar.Errorf("[Transfer] download of %s from %s failed: %v", hash, peer, err)
		n.book.Evict(peer)
	}

	if lastErr == nil {
		// every candidate was skipped (e.g. a stale self-only entry)
		return "", fmt.Errorf("%w: %s", ErrAllPeersFailed, hash)
	}
	return "", fmt.Errorf("%w: %s: last error: %w", ErrAllPeersFailed, hash, lastErr)
}

// downloadFrom tries one peer with the per-peer retry budget and a constant
// backoff between attempts. Permanent failures (refused connection, wrong
// response type, hash mismatch) stop the retries immediately.
func (n *Node) downloadFrom(peer peers.Addr, hash, name string) (string, error) {
	var path string
	attempt := func() error {
		p, err := n.attemptDownload(peer, hash, name)
		if err != nil {
			return err
		}
		path = p
		return nil
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(n.cfg.RetryBackoff),
		uint64(n.cfg.DownloadRetries),
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return "", err
	}
	return path, nil
}

func (n *Node) attemptDownload(peer peers.Addr, hash, name string) (string, error) {
	conn, err := net.DialTimeout("tcp", peer.TransferAddr(), n.cfg.IOTimeout)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return "", backoff.Permanent(fmt.Errorf("peer %s unreachable: %w", peer, err))
		}
		return "", err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(n.cfg.IOTimeout))

	if err := protocol.WriteRecord(conn, protocol.TransferRequest{
		Type:     protocol.TypeFileRequest,
		FileHash: hash,
	}); err != nil {
		return "", err
	}

	br := bufio.NewReader(conn)
	var hdr protocol.TransferHeader
	if err := protocol.ReadRecord(br, &hdr); err != nil {
		return "", err
	}
	switch hdr.Type {
	case protocol.TypeFileData:
	case protocol.TypeError:
		return "", backoff.Permanent(fmt.Errorf("%w: peer %s: %s", ErrBadResponse, peer, hdr.Message))
	default:
		return "", backoff.Permanent(fmt.Errorf("%w: peer %s sent %q", ErrBadResponse, peer, hdr.Type))
	}

	if err := os.MkdirAll(n.cfg.DownloadsDir, 0755); err != nil {
		return "", backoff.Permanent(err)
	}
	path := filepath.Join(n.cfg.DownloadsDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	logger.Sugar.Infof("[Transfer] downloading %s (%s) from %s", name, hash, peer)

	hasher := sha256.New()
	buf := make([]byte, n.cfg.BlockSize)
	var total int64
	for {
		conn.SetReadDeadline(time.Now().Add(n.cfg.IOTimeout))
		nr, rerr := br.Read(buf)
		if nr > 0 {
			total += int64(nr)
			hasher.Write(buf[:nr])
			if _, werr := out.Write(buf[:nr]); werr != nil {
				out.Close()
				os.Remove(path)
				return "", backoff.Permanent(werr)
			}
		}
		if rerr == nil {
			continue
		}
		if rerr == io.EOF {
			break
		}
		var ne net.Error
		if errors.As(rerr, &ne) && ne.Timeout() && total > 0 {
			// mid-stream stall: keep reading until the peer closes
			n.tlog.Warnf("stall-"+peer.String(), "[Transfer] stream from %s stalled at %d bytes, continuing", peer, total)
			continue
		}
		// timeout before any data, or a reset: retried by the caller
		out.Close()
		os.Remove(path)
		return "", rerr
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", backoff.Permanent(err)
	}

	if sum := hex.EncodeToString(hasher.Sum(nil)); sum != hash {
		os.Remove(path)
		return "", backoff.Permanent(fmt.Errorf("%w: got %s want %s", ErrHashMismatch, sum, hash))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	n.catalog.RecordLocal(hash, name, abs, n.self)
	monitor.RecordReceive(total)
	logger.Sugar.Infof("[Transfer] downloaded %s (%d bytes) from %s", name, total, peer)
	return abs, nil
}

// PushFile sends a locally held file to a specific peer's transfer endpoint.
// The receiver verifies the hash before accepting it.
func (n *Node) PushFile(peer peers.Addr, hash string) error {
	lf, ok := n.catalog.Local(hash)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, hash)
	}

	file, err := os.Open(lf.Path)
	if err != nil {
		return fmt.Errorf("open local holding: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat local holding: %w", err)
	}

	conn, err := net.DialTimeout("tcp", peer.TransferAddr(), n.cfg.IOTimeout)
	if err != nil {
		return fmt.Errorf("dial peer %s: %w", peer, err)
	}
	defer conn.Close()

	if err := protocol.WriteRecord(conn, protocol.TransferRequest{
		Type:     protocol.TypeSendFile,
		FileHash: hash,
		FileName: lf.Name,
		FileSize: info.Size(),
	}); err != nil {
		return fmt.Errorf("send push header: %w", err)
	}

	buf := make([]byte, n.cfg.BlockSize)
	var total int64
	for {
		conn.SetWriteDeadline(time.Now().Add(n.cfg.IOTimeout))
		nr, rerr := file.Read(buf)
		if nr > 0 {
			total += int64(nr)
			if _, werr := conn.Write(buf[:nr]); werr != nil {
				return fmt.Errorf("push to %s failed after %d bytes: %w", peer, total, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read local holding: %w", rerr)
		}
	}

	monitor.RecordSend(total)
	logger.Sugar.Infof("[Transfer] pushed %s (%d bytes) to %s", lf.Name, total, peer)
	return nil
}
