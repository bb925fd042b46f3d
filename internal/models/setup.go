package models

import "encoding/json"

// SetupRecord is a setup snapshot of the car. Every group is optional.
type SetupRecord struct {
	// Key is the path of the document below the setup directory.
	Key string `json:"key" mapstructure:"-"`
	// Path is the relative path the document was read from.
	Path string `json:"path" mapstructure:"-"`
	Name string `json:"name"`

	Aero           *Aero           `json:"aero,omitempty"`
	TirePressures  *Corners        `json:"tirePressures,omitempty"`
	BrakeBias      *BrakeBias      `json:"brakeBias,omitempty"`
	CornerWeights  *Corners        `json:"cornerWeights,omitempty"`
	RideHeight     *RideHeight     `json:"rideHeight,omitempty"`
	Alignment      *Alignment      `json:"alignment,omitempty"`
	SpringsDampers *SpringsDampers `json:"springsDampers,omitempty"`
	Drivetrain     *Drivetrain     `json:"drivetrain,omitempty"`
	Firmware       *Firmware       `json:"firmware,omitempty"`
	PowerLimits    *PowerLimits    `json:"powerLimits,omitempty"`
	Battery        *Battery        `json:"battery,omitempty"`

	// Extras holds the top-level fields of the document not described above.
	Extras map[string]any `json:"-" mapstructure:",remain"`
}

// Aero is the aerodynamic configuration.
type Aero struct {
	FrontWingAngle float64 `json:"frontWingAngle"`
	RearWingAngle  float64 `json:"rearWingAngle"`
	Gurney         bool    `json:"gurney,omitempty"`
}

// Corners holds one value per wheel, such as tire pressures or corner weights.
type Corners struct {
	FrontLeft  float64 `json:"frontLeft"`
	FrontRight float64 `json:"frontRight"`
	RearLeft   float64 `json:"rearLeft"`
	RearRight  float64 `json:"rearRight"`
}

// BrakeBias is the front share of braking force, in percent.
type BrakeBias struct {
	Front float64 `json:"front"`
}

// RideHeight in millimetres.
type RideHeight struct {
	Front float64 `json:"front"`
	Rear  float64 `json:"rear"`
}

// Alignment angles in degrees.
type Alignment struct {
	FrontCamber float64 `json:"frontCamber"`
	RearCamber  float64 `json:"rearCamber"`
	FrontToe    float64 `json:"frontToe"`
	RearToe     float64 `json:"rearToe"`
	Caster      float64 `json:"caster,omitempty"`
}

// SpringsDampers holds spring rates and damper clicks.
type SpringsDampers struct {
	FrontSpringRate float64 `json:"frontSpringRate"`
	RearSpringRate  float64 `json:"rearSpringRate"`
	FrontBump       int     `json:"frontBump"`
	FrontRebound    int     `json:"frontRebound"`
	RearBump        int     `json:"rearBump"`
	RearRebound     int     `json:"rearRebound"`
	ARBFront        string  `json:"arbFront,omitempty"`
	ARBRear         string  `json:"arbRear,omitempty"`
}

// Drivetrain configuration.
type Drivetrain struct {
	FinalDrive   float64 `json:"finalDrive"`
	Differential string  `json:"differential,omitempty"`
}

// Firmware holds the hashes of the firmware flashed on each controller.
type Firmware struct {
	VCU      string `json:"vcu,omitempty"`
	BMS      string `json:"bms,omitempty"`
	Inverter string `json:"inverter,omitempty"`
	Dash     string `json:"dash,omitempty"`
}

// PowerLimits configured on the inverter and accumulator.
type PowerLimits struct {
	MaxPowerKW  float64 `json:"maxPowerKW"`
	MaxTorqueNm float64 `json:"maxTorqueNm"`
	RegenKW     float64 `json:"regenKW,omitempty"`
}

// Battery state when the snapshot was taken.
type Battery struct {
	StateOfCharge float64 `json:"stateOfCharge"`
}

// setupFields is SetupRecord without its JSON methods.
type setupFields SetupRecord

// MarshalJSON encodes the record, writing Extras back as top-level fields.
// Described fields take precedence over extras of the same name.
func (s SetupRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(setupFields(s))
	if err != nil || len(s.Extras) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range s.Extras {
		if _, ok := fields[k]; ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes the record, collecting unknown top-level fields in Extras.
func (s *SetupRecord) UnmarshalJSON(data []byte) error {
	var f setupFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownSetupFields {
		delete(all, k)
	}
	f.Extras = nil
	if len(all) > 0 {
		f.Extras = all
	}

	*s = SetupRecord(f)
	return nil
}

var knownSetupFields = []string{
	"key", "path", "name", "aero", "tirePressures", "brakeBias", "cornerWeights", "rideHeight",
	"alignment", "springsDampers", "drivetrain", "firmware", "powerLimits", "battery",
}
