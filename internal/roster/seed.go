package roster

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SeedFile is the TOML layout of a roster file
type SeedFile struct {
	Accounts []SeedAccount `toml:"account"`
	Groups   []SeedGroup   `toml:"group"`
}

// SeedAccount describes a local account
type SeedAccount struct {
	Protocol  string `toml:"protocol"`
	Username  string `toml:"username"`
	Connected bool   `toml:"connected"`
}

// SeedGroup describes a group and its children
type SeedGroup struct {
	Name        string        `toml:"name"`
	AlwaysShow  bool          `toml:"always_show"`
	ShowOffline bool          `toml:"show_offline"`
	Contacts    []SeedContact `toml:"contact"`
	Chats       []SeedChat    `toml:"chat"`
}

// SeedContact describes a contact and its buddies
type SeedContact struct {
	Alias       string      `toml:"alias"`
	ShowOffline bool        `toml:"show_offline"`
	Buddies     []SeedBuddy `toml:"buddy"`
}

// SeedBuddy describes a buddy. Account is "protocol:username".
type SeedBuddy struct {
	Account     string `toml:"account"`
	Name        string `toml:"name"`
	Alias       string `toml:"alias"`
	ServerAlias string `toml:"server_alias"`
	Status      string `toml:"status"`
	ShowOffline bool   `toml:"show_offline"`
}

// SeedChat describes a saved chat room
type SeedChat struct {
	Account  string `toml:"account"`
	Name     string `toml:"name"`
	Alias    string `toml:"alias"`
	AutoJoin bool   `toml:"auto_join"`
}

// LoadSeedFile reads a roster file from disk
func LoadSeedFile(path string) (*SeedFile, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat roster file: %w", err)
	}
	var seed SeedFile
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	return &seed, nil
}

// DecodeSeed parses a roster file from a string
func DecodeSeed(data string) (*SeedFile, error) {
	var seed SeedFile
	if _, err := toml.Decode(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return &seed, nil
}

// Apply adds the seed's accounts and nodes to the roster, emitting the
// usual creation events.
func (s *SeedFile) Apply(r *Roster) error {
	for _, a := range s.Accounts {
		r.AddAccount(a.Protocol, a.Username, a.Connected)
	}

	for _, sg := range s.Groups {
		g := r.AddGroup(sg.Name)
		if sg.AlwaysShow || sg.ShowOffline {
			flags := g.Flags()
			flags.AlwaysShow = sg.AlwaysShow
			flags.ShowOffline = sg.ShowOffline
			if err := r.SetFlags(g, flags); err != nil {
				return err
			}
		}

		for _, sc := range sg.Contacts {
			if len(sc.Buddies) == 0 {
				continue
			}
			c, err := r.AddContact(g, nil)
			if err != nil {
				return err
			}
			for _, sb := range sc.Buddies {
				account := r.Account(sb.Account)
				if account == nil {
					return fmt.Errorf("failed to add buddy %s: unknown account %s", sb.Name, sb.Account)
				}
				b, err := r.AddBuddy(c, account, sb.Name, ParseStatus(sb.Status))
				if err != nil {
					return err
				}
				if sb.Alias != "" {
					if err := r.SetAlias(b, sb.Alias); err != nil {
						return err
					}
				}
				if sb.ServerAlias != "" {
					if err := r.SetServerAlias(b, sb.ServerAlias); err != nil {
						return err
					}
				}
				if sb.ShowOffline {
					if err := r.SetFlags(b, Flags{ShowOffline: true}); err != nil {
						return err
					}
				}
			}
			if sc.Alias != "" {
				if err := r.SetAlias(c, sc.Alias); err != nil {
					return err
				}
			}
			if sc.ShowOffline {
				if err := r.SetShowOfflineSubtree(c, true); err != nil {
					return err
				}
			}
		}

		for _, sch := range sg.Chats {
			account := r.Account(sch.Account)
			if account == nil {
				return fmt.Errorf("failed to add chat %s: unknown account %s", sch.Name, sch.Account)
			}
			ch, err := r.AddChat(g, account, sch.Name, nil)
			if err != nil {
				return err
			}
			if sch.Alias != "" {
				if err := r.SetAlias(ch, sch.Alias); err != nil {
					return err
				}
			}
			if sch.AutoJoin {
				if err := r.SetFlags(ch, Flags{AutoJoin: true}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
