package app

import (
	"github.com/goliatone/go-settings/field"
	"github.com/goliatone/go-settings/registry"
)

// Catalog returns the setting groups settingsctl manages.
func Catalog() (*registry.Static, error) {
	return registry.NewStatic(
		registry.Group{
			Code: "customSettings",
			Name: "Custom settings",
			Fields: []field.Field{
				field.Bool("onlyOnceDaily", "Run selected modules once a day", true),
				field.NewSelect("onlyOnceDailyList", "Modules that run once a day",
					[]string{"antOrchard", "antCooperate", "antSports", "antMember", "EcoProtection", "greenFinance", "reserve"},
					field.Option{ID: "antForest", Name: "Forest"},
					field.Option{ID: "antFarm", Name: "Farm"},
					field.Option{ID: "antOcean", Name: "Ocean"},
					field.Option{ID: "antOrchard", Name: "Orchard"},
					field.Option{ID: "antStall", Name: "Stall"},
					field.Option{ID: "antDodo", Name: "Dodo"},
					field.Option{ID: "antCooperate", Name: "Cooperative planting"},
					field.Option{ID: "antSports", Name: "Sports"},
					field.Option{ID: "antMember", Name: "Member"},
					field.Option{ID: "EcoProtection", Name: "Eco protection"},
					field.Option{ID: "greenFinance", Name: "Green finance"},
					field.Option{ID: "reserve", Name: "Reserve"},
					field.Option{ID: "other", Name: "Other tasks"},
				),
				field.Bool("autoHandleOnceDaily", "Automatic mode", false),
				field.StringList("autoHandleOnceDailyTimes", "Automatic full run times", []string{"0600", "2000"}),
			},
		},
		registry.Group{
			Code: "base",
			Name: "Base",
			Fields: []field.Field{
				field.Bool("enable", "Enabled", true),
				field.Int("checkInterval", "Check interval in minutes", 50),
				field.StringList("wakenAtTimeList", "Wake-up times", []string{"0650", "2350"}),
				field.String("timeZone", "Time zone", "UTC"),
			},
		},
	)
}
