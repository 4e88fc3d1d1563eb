package version

// Version is the current release of the carefever server
const Version = "0.1.0"
