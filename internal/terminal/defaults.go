package terminal

// Suggested values from the wiring guide (ESP32-WROOM-32, RC522 on VSPI,
// LCD2004 with PCF8574 backpack). These only prefill interactive setup;
// loading never falls back to them.
const (
	DefaultTimezone  = "CET-1CEST,M3.5.0/2,M10.5.0/3"
	DefaultNTPServer = "pool.ntp.org"
	// PN532 breakout guides put RST on GPIO16, away from I2C clock.
	DefaultPN532RST = 16
)

// Suggestions returns partial Source with wiring guide defaults.
// Network credentials and key have no sensible default.
func Suggestions() *Source {
	s := &Source{}
	str := func(x string) *string { return &x }
	num := func(x int) *int { return &x }
	yes := true

	s.Reader.Type = str(string(ReaderRC522))
	s.Reader.PN532Mode = str(string(BusI2C))
	s.Pins = PinsSource{
		SDA: num(21), SCL: num(22),
		MOSI: num(23), MISO: num(19), SCK: num(18), SS: num(5),
		RST: num(22), IRQ: num(4),
	}
	s.Display = DisplaySource{
		Enabled: &yes,
		Rows:    num(4),
		SDA:     num(21),
		SCL:     num(22),
		Address: str("0x27"),
	}
	s.Time.Timezone = str(DefaultTimezone)
	s.Time.NTPServer = str(DefaultNTPServer)
	return s
}

// Choices lists accepted literals for enumerated settings, nil otherwise.
func Choices(st *Setting) []string {
	switch st.Name {
	case "LOCAL_READER_TYPE":
		return []string{string(ReaderRC522), string(ReaderPN532)}
	case "LOCAL_PN532_MODE":
		return []string{string(BusI2C), string(BusSPI)}
	case "LOCAL_DISPLAY_ADDRESS":
		return []string{"0x27", "0x3F"}
	}
	if st.Kind == KindBool {
		return []string{"true", "false"}
	}
	return nil
}
