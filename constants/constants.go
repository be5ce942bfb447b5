package constants

// Config
const VerboseEnvVar = "VERBOSE"
const ConfigPathEnvVar = "DATADOC_CONFIG"

// File system
const ConfigDirName = ".datadoc"
const ConfigFileName = "config.yml"
const ShardExt = ".tar"
const SidecarSuffix = "_doc.jsonl"
const ManifestExt = ".json"
const SignatureSuffix = ".sig.json"
const CompressedExt = ".zst"

// Images
const ThumbSize = 32
const JPEGMinimumBytes = 141

// Error messages
const ErrMsgNoShards = "No TAR files found in %s."
const ErrMsgNoManifest = "Missing manifest path. Usage: datadoc %s <manifest>"

// Formatting
const TimeFormat = "2006-01-02 @ 03:04:05pm"
