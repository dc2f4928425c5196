// Package types defines values shared by the server and qcctl that sit
// outside the measurement engine: project metadata and the YAML project file
// format used for offline reports.
package types
