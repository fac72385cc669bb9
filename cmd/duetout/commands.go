package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect requested by the reducer and
// executed by the daemon loop: OS audio calls and preference writes.
type Command interface {
	commandMarker()
	String() string
}

// CmdRefreshCatalog re-enumerates the output device pool.
type CmdRefreshCatalog struct{}

func (CmdRefreshCatalog) commandMarker() {}
func (CmdRefreshCatalog) String() string { return "CmdRefreshCatalog()" }

// CmdCreateAggregate stacks the two resolved devices into the combined output
// device, with Primary as the clock source.
type CmdCreateAggregate struct {
	Primary   AudioDevice
	Secondary AudioDevice
}

func (CmdCreateAggregate) commandMarker() {}
func (c CmdCreateAggregate) String() string {
	return fmt.Sprintf("CmdCreateAggregate(primary=%s, secondary=%s)", c.Primary.UID, c.Secondary.UID)
}

// CmdDestroyAggregate tears down the live aggregate device, if any.
type CmdDestroyAggregate struct{}

func (CmdDestroyAggregate) commandMarker() {}
func (CmdDestroyAggregate) String() string { return "CmdDestroyAggregate()" }

// CmdSetDefaultOutput routes system audio to the given device.
type CmdSetDefaultOutput struct {
	Device DeviceID
	Name   string
}

func (CmdSetDefaultOutput) commandMarker() {}
func (c CmdSetDefaultOutput) String() string {
	return fmt.Sprintf("CmdSetDefaultOutput(device=%d, name=%q)", uint32(c.Device), c.Name)
}

// CmdSaveSelection persists the chosen device uids.
type CmdSaveSelection struct {
	PrimaryUID   string
	SecondaryUID string
}

func (CmdSaveSelection) commandMarker() {}
func (c CmdSaveSelection) String() string {
	return fmt.Sprintf("CmdSaveSelection(primary=%s, secondary=%s)", c.PrimaryUID, c.SecondaryUID)
}

// CmdPublishSnapshot delivers a reducer-produced snapshot to a requester.
// The channel send lives in the effects layer to keep the reducer pure.
type CmdPublishSnapshot struct {
	Snapshot StateSnapshot
	Reply    chan StateSnapshot
}

func (CmdPublishSnapshot) commandMarker() {}
func (CmdPublishSnapshot) String() string { return "CmdPublishSnapshot()" }
