// Package core provides the business logic for bulk CSV imports.
//
// The package holds every rule of the import engine and nothing about how a
// file arrives. The HTTP server in internal/web and the importer CLI both
// call [Service.RunImport] and render the same [ImportReport].
//
// # Architecture
//
//   - Profiles: registered via the registry, each profile names its columns
//     and supplies the build, resolve, detect and persist steps for one
//     kind of record (initiative, scholarship, group).
//   - Service: the entry point. It checks the request, takes an
//     [ImportLimiter] slot, runs the [Orchestrator] and records the run.
//   - Orchestrator: reads the whole file, binds the header, then hands each
//     row to a [RowCoordinator] in file order.
//   - Resolver: turns names and emails into existing or newly created
//     reference entities (people, campuses, knowledge areas, scholarship
//     types, organizations).
//
// # Profile Registry
//
// Profiles are registered at init time using [Register]:
//
//	core.Register(core.ProfileDefinition{
//	    Info: core.ProfileInfo{Key: "group", Label: "Organizational Groups", Primary: "group"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "name", Header: "Nome", Required: true},
//	        {Name: "keywords", Header: "PalavrasChave", Delimiter: ","},
//	    },
//	    Build:   buildGroup,
//	    Resolve: resolveGroup,
//	    Detect:  detectGroup,
//	    Persist: persistGroup,
//	})
//
// # Row Lifecycle
//
// Every row runs in its own transaction (a savepoint inside the outer
// transaction of a dry run) and moves through
//
//	pending -> normalizing -> resolving -> duplicate_check -> persisting -> committed
//
// ending early in skipped (duplicate of an existing record) or failed. A
// failed or skipped row rolls back everything it created, including
// references, so the report counts only what was kept.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each error category has a code for support reference:
//
//   - FILE001-FILE006: File errors (size, encoding, structure, type)
//   - VAL001-VAL011: Validation errors (dates, amounts, emails, columns)
//   - CNF001-CNF002: Conflicts with existing records
//   - DB002-DB007: Database errors
//   - IMP001-IMP007: Import errors (profile, limiter, timeout, options)
//   - RATE001: Request rate limit
package core
