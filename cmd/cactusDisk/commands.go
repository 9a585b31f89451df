package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/pkg/cactusDisk"
	"github.com/i5heu/cactusdisk/pkg/model"
	"github.com/i5heu/cactusdisk/pkg/types"
	"github.com/spf13/cobra"
)

var (
	idCount      int
	reverse      bool
	parentName   string
	groupNames   []string
	endNames     []string
	eventName    string
	header       string
	showBases    bool
	addFlower    bool
	addSequence  string
	sequenceFrom int64
)

func init() {
	UniqueIDCmd.Flags().IntVarP(&idCount, "count", "n", 1, "number of names to allocate")
	GetStringCmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "read the reverse complement")

	FlowerCmd.Flags().BoolVar(&addFlower, "add", false, "register a new flower and write it")
	FlowerCmd.Flags().StringVar(&parentName, "parent", "0", "parent group of a new flower")
	FlowerCmd.Flags().StringSliceVar(&groupNames, "group", nil, "group names of a new flower")
	FlowerCmd.Flags().StringSliceVar(&endNames, "end", nil, "end names of a new flower")

	MetaSequenceCmd.Flags().StringVar(&addSequence, "add", "", "store these bases as a new meta sequence")
	MetaSequenceCmd.Flags().Int64Var(&sequenceFrom, "start", 0, "start coordinate of a new meta sequence")
	MetaSequenceCmd.Flags().StringVar(&eventName, "event", "0", "event name of a new meta sequence")
	MetaSequenceCmd.Flags().StringVar(&header, "header", "", "header of a new meta sequence")
	MetaSequenceCmd.Flags().BoolVar(&showBases, "bases", false, "print the bases of the meta sequence")
}

// UniqueIDCmd allocates names that are unique across every session of the backend.
var UniqueIDCmd = &cobra.Command{
	Use:   "unique-id",
	Short: "`unique-id` allocates unique names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			for i := 0; i < idCount; i++ {
				name, err := cd.GetUniqueID()
				if err != nil {
					return err
				}
				fmt.Println(name)
			}
			return nil
		})
	},
}

var AddStringCmd = &cobra.Command{
	Use:   "add-string <string>",
	Short: "`add-string` stores a string and prints its name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			name, err := cd.AddString(args[0])
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		})
	},
}

var GetStringCmd = &cobra.Command{
	Use:   "get-string <name> <start> <length>",
	Short: "`get-string` prints a substring of a stored string",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := types.StringToName(args[0])
		if err != nil {
			return err
		}
		start, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid start %q: %w", args[1], err)
		}
		length, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid length %q: %w", args[2], err)
		}

		strand := types.ForwardStrand
		if reverse {
			strand = types.ReverseStrand
		}

		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			s, err := cd.GetString(name, start, length, strand)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		})
	},
}

var FlowerCmd = &cobra.Command{
	Use:   "flower <name>...",
	Short: "`flower` prints flowers in name order, or stores a new one with --add",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := parseNames(args)
		if err != nil {
			return err
		}
		if addFlower && len(names) != 1 {
			return fmt.Errorf("--add takes exactly one flower name")
		}

		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			if addFlower {
				f, err := newFlower(names[0])
				if err != nil {
					return err
				}
				if err := cd.AddFlower(f); err != nil {
					return err
				}
				return cd.Write()
			}

			for _, name := range names {
				f, err := cd.GetFlower(name)
				if err != nil {
					return err
				}
				if f == nil {
					return fmt.Errorf("flower %s not found", name)
				}
			}
			cd.Flowers(func(f *model.Flower) bool {
				printFlower(f)
				return true
			})
			return nil
		})
	},
}

var MetaSequenceCmd = &cobra.Command{
	Use:   "meta-sequence [name]...",
	Short: "`meta-sequence` prints meta sequences in name order, or stores a new one with --add",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addSequence != "" {
			return withDisk(addMetaSequence)
		}
		if len(args) == 0 {
			return fmt.Errorf("a meta sequence name is required")
		}

		names, err := parseNames(args)
		if err != nil {
			return err
		}

		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			for _, name := range names {
				m, err := cd.GetMetaSequence(name)
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("meta sequence %s not found", name)
				}
			}

			cd.MetaSequences(func(m *model.MetaSequence) bool {
				err = printMetaSequence(cd, m)
				return err == nil
			})
			return err
		})
	},
}

var DeleteFlowerCmd = &cobra.Command{
	Use:   "delete-flower <name>...",
	Short: "`delete-flower` removes flowers from the disk",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := parseNames(args)
		if err != nil {
			return err
		}

		return withDisk(func(cd *cactusDisk.CactusDisk) error {
			for _, name := range names {
				cd.DeleteFlowerFromDisk(model.NewFlower(name))
			}
			return cd.Write()
		})
	},
}

var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "`usage` prints the disk usage of a local backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := resolveConfiguration()
		if err != nil {
			return err
		}
		if config.Store.Type == keyValStore.RedisStore {
			return fmt.Errorf("usage is only available for local backends")
		}

		for _, path := range config.Store.Paths {
			u, err := keyValStore.GetDiskUsage(path)
			if err != nil {
				return err
			}
			fmt.Printf("%s on %s (%s)\n", u.Path, u.MountPoint, u.Device)
			fmt.Printf("  total:     %s\n", humanize.Bytes(u.Total))
			fmt.Printf("  used:      %s\n", humanize.Bytes(u.Used))
			fmt.Printf("  free:      %s\n", humanize.Bytes(u.Free))
			fmt.Printf("  by cactus: %s\n", humanize.Bytes(u.UsedByDB))
		}
		return nil
	},
}

func parseNames(values []string) ([]types.Name, error) {
	names := make([]types.Name, 0, len(values))
	for _, v := range values {
		name, err := types.StringToName(v)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func newFlower(name types.Name) (*model.Flower, error) {
	parent, err := types.StringToName(parentName)
	if err != nil {
		return nil, err
	}
	groups, err := parseNames(groupNames)
	if err != nil {
		return nil, err
	}
	ends, err := parseNames(endNames)
	if err != nil {
		return nil, err
	}

	f := model.NewFlower(name)
	f.ParentGroupName = parent
	for _, g := range groups {
		f.AddGroupName(g)
	}
	for _, e := range ends {
		f.AddEndName(e)
	}
	return f, nil
}

func addMetaSequence(cd *cactusDisk.CactusDisk) error {
	event, err := types.StringToName(eventName)
	if err != nil {
		return err
	}

	stringName, err := cd.AddString(addSequence)
	if err != nil {
		return err
	}
	name, err := cd.GetUniqueID()
	if err != nil {
		return err
	}

	m := model.NewMetaSequence(name, sequenceFrom, int64(len(addSequence)), stringName, event, header)
	if err := cd.AddMetaSequence(m); err != nil {
		return err
	}
	if err := cd.Write(); err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func printMetaSequence(cd *cactusDisk.CactusDisk, m *model.MetaSequence) error {
	fmt.Printf("name:   %s\nstart:  %d\nlength: %d\nstring: %s\nevent:  %s\nheader: %s\n",
		m.Name(), m.Start(), m.Length(), m.StringName(), m.EventName(), m.Header())
	if !showBases {
		return nil
	}

	bases, err := cd.MetaSequenceString(m, m.Start(), m.Length(), types.ForwardStrand)
	if err != nil {
		return err
	}
	fmt.Println(bases)
	return nil
}

func printFlower(f *model.Flower) {
	fmt.Printf("name:    %s\n", f.Name)
	fmt.Printf("parent:  %s\n", f.ParentGroupName)
	fmt.Printf("groups:  %v\n", f.GroupNames)
	fmt.Printf("ends:    %v\n", f.EndNames)
	fmt.Printf("leaf:    %t\n", f.IsLeaf())
	fmt.Printf("built:   blocks=%t trees=%t faces=%t\n", f.BuiltBlocks, f.BuiltTrees, f.BuiltFaces)
}
