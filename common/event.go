package common

// EventNewBulb is emitted by a Client when a Bulb is added
type EventNewBulb struct {
	Bulb Bulb
}

// EventExpiredBulb is emitted by a Client when a Bulb is removed
type EventExpiredBulb struct {
	Bulb Bulb
}

// EventUpdateName is emitted by a Bulb when it's name is read
type EventUpdateName struct {
	Name string
}

// EventUpdateColor is emitted by a Bulb when it's Color is updated
type EventUpdateColor struct {
	Color Color
}

// EventUpdateBrightness is emitted by a Bulb when it's brightness is updated
type EventUpdateBrightness struct {
	Brightness int16
}

// EventUpdateState is emitted by a Bulb when it's connection state changes
type EventUpdateState struct {
	State ConnectionState
}
