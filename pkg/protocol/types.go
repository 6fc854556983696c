package protocol

// Discovery message types (UDP datagrams).
const (
	TypeHello         = "hello"
	TypeHelloResponse = "hello_response"
	TypeAnnounceFile  = "announce_file"
	TypeGoodbye       = "goodbye"
)

// Transfer record types (TCP, discovery port + 1).
const (
	TypeFileRequest = "file_request"
	TypeFileData    = "file_data"
	TypeSendFile    = "send_file"
	TypeError       = "error"
)

// Reference protocol constants. Nodes may override them through the config
// surface, but the defaults are what remote nodes expect.
const (
	// MaxDatagramSize bounds a single discovery datagram.
	MaxDatagramSize = 65507
	// BlockSize is the unit transfer streams are read and written in.
	BlockSize = 8192
)

// DiscoveryMessage is the payload of one discovery datagram. Host and Port
// declare the sender's discovery endpoint; receivers address replies there
// rather than to the datagram's source address, which may differ behind NAT.
// A goodbye carries no fields beyond Type.
type DiscoveryMessage struct {
	Type     string            `json:"type"`
	Host     string            `json:"host,omitempty"`
	Port     int               `json:"port,omitempty"`
	Files    map[string]string `json:"files,omitempty"` // hash -> display name
	FileHash string            `json:"file_hash,omitempty"`
	FileName string            `json:"file_name,omitempty"`
}

// TransferRequest opens a transfer stream. FileName and FileSize are only
// set for send_file pushes.
type TransferRequest struct {
	Type     string `json:"type"`
	FileHash string `json:"file_hash"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// TransferHeader is the server's reply to a file_request. A file_data header
// is followed by the raw file bytes; an error header has no body.
type TransferHeader struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}
