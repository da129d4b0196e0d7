package domain

// KeyDeviceID is the device-local store key holding the device identifier.
const KeyDeviceID = "device.id"

// DeviceIdentity identifies this device or client profile across logins.
// Ephemeral is true when the id could not be persisted and only lives for this run.
type DeviceIdentity struct {
	ID        string
	Ephemeral bool
}
