// Package port checks that the host ports a container request publishes are
// free before the container is created.
//
// Docker reports a taken host port only when the container is started, after
// it has already been created. Checking up front turns that into a clear
// error that names every busy port at once, and leaves no half-created
// container behind.
package port
