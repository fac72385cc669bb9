package main

// Identity of the aggregate device this daemon owns. The UID is a fixed
// constant: the catalog filters it out of every refresh, and a stale aggregate
// left over from a crashed run is still recognized by the next one.
const (
	aggregateDeviceUID  = "com.duetout.aggregate"
	aggregateDeviceName = "duetout Combined Output"
)

const (
	defaultIPCSocketPath  = "/tmp/duetout.sock"
	defaultStateWSAddr    = "127.0.0.1:3600"
	defaultStateWSPath    = "/state"
	defaultPollIntervalMS = 0 // catalog polling disabled by default

	// prefsFileName is the selection file below the XDG state directory.
	prefsFileName = "duetout/selection.json"
)
