package codapmeta

// Version is the client library version advertised in the default User-Agent.
const Version = "1.0.0"

const defaultUserAgent = "CODAP-Metadata-Client-Go/" + Version
