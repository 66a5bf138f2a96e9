package cli

import (
	"fmt"

	"github.com/sftpdeck/sftpdeck/internal/config"
	"github.com/sftpdeck/sftpdeck/internal/constants"
	"github.com/sftpdeck/sftpdeck/internal/remote"
)

// loadStore opens the settings store honoring the --config flag.
func loadStore() (*config.Store, error) {
	return config.Load(cfgFile)
}

// connectionParams resolves the remote endpoint from flags, falling
// back to the saved profile named by --connection. Explicit flags win
// over profile fields.
func connectionParams() (config.Connection, error) {
	conn := config.Connection{
		Host:     hostFlag,
		Port:     portFlag,
		Username: userFlag,
		Password: passwordFlag,
	}

	if connectionFlag != "" {
		store, err := loadStore()
		if err != nil {
			return conn, err
		}
		saved, ok := store.Connections()[connectionFlag]
		if !ok {
			return conn, fmt.Errorf("no saved connection named %q", connectionFlag)
		}
		if conn.Host == "" {
			conn.Host = saved.Host
		}
		if conn.Port == 0 {
			conn.Port = saved.Port
		}
		if conn.Username == "" {
			conn.Username = saved.Username
		}
		if conn.Password == "" {
			conn.Password = saved.Password
		}
	}

	if conn.Host == "" {
		return conn, fmt.Errorf("no remote host: pass --host or --connection")
	}
	if conn.Username == "" {
		return conn, fmt.Errorf("no username: pass --user or --connection")
	}
	if conn.Port == 0 {
		conn.Port = constants.DefaultSSHPort
	}
	return conn, nil
}

// openSession connects to the remote selected by the global flags.
// The caller owns the session and must Disconnect it.
func openSession() (*remote.Session, error) {
	conn, err := connectionParams()
	if err != nil {
		return nil, err
	}

	sess := remote.NewSession(GetLogger(), nil)
	if err := sess.Connect(conn.Host, conn.Port, conn.Username, conn.Password, constants.ConnectTimeout); err != nil {
		return nil, err
	}
	return sess, nil
}
