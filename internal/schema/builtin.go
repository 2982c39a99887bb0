package schema

var stringType = &Type{Name: "String", Kind: TypeKindScalar}

var intType = &Type{Name: "Int", Kind: TypeKindScalar}

var floatType = &Type{Name: "Float", Kind: TypeKindScalar}

var booleanType = &Type{Name: "Boolean", Kind: TypeKindScalar}

var idType = &Type{Name: "ID", Kind: TypeKindScalar}
