package domain

// Tables relational schema managed by AutoMigrate
var Tables = []interface{}{
	&User{},
	&Product{},
}
