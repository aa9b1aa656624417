package content

// Test content values shared across codec tests.
const (
	testText          = "gm, frens"
	testReference     = "message-0001"
	testFilename      = "cat.png"
	testMimeType      = "image/png"
	testRemoteURL     = "https://files.example.com/abc123"
	testLargePayload  = 4096
	testOverrideLabel = "override"
)

// testCustomType is a content type no built-in codec handles.
var testCustomType = TypeID{AuthorityID: "example.com", TypeID: "coffee", VersionMajor: 1, VersionMinor: 0}
