// Package browser launches a VNC-enabled Playwright browser as a Docker container and
// hands out its connection endpoints.
//
// A Launcher owns a container name, two ports and a secret websocket path. BrowserAddress
// is the Playwright websocket URL and VNCAddress is the noVNC viewer page. When the caller
// runs inside the same docker network the hostname is the container's DNS name; otherwise it
// is Config.ExternalHost or 127.0.0.1.
//
// CreateContainer only creates the container. Start and Close are conveniences that also
// start it, wait for the websocket endpoint, and stop it again.
package browser
