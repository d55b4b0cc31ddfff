package app

import (
	"errors"
	"flag"
)

type Config struct {
	DBPath    string
	SessionID int64 // Zero lists the sessions
	Verbose   bool
}

func NewConfigFromCLI() (*Config, error) {
	c := Config{}

	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.Int64Var(&c.SessionID, "s", 0, "Session ID, 0 lists all sessions")
	flag.BoolVar(&c.Verbose, "verbose", false, "Print every interval violation")
	flag.Parse()

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID < 0 {
		err = errors.New("session id must not be negative")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	return &c, nil
}
